package vpn

import (
	"fmt"
	"os"

	"github.com/pgj1978/PI-VPN-Router/internal/config"
	"github.com/pgj1978/PI-VPN-Router/internal/logging"
	"github.com/pgj1978/PI-VPN-Router/internal/metrics"
	"github.com/pgj1978/PI-VPN-Router/internal/policy"
	"github.com/pgj1978/PI-VPN-Router/internal/routing"
	"github.com/pgj1978/PI-VPN-Router/internal/system"
)

// Manager switches the single tunnel interface between stored profiles.
// The state machine is {Down, Up(profile)}; every connect starts with a
// blanket cleanup so the outcome never depends on how prior state was
// created.
type Manager struct {
	cfg    config.Config
	store  *policy.Store
	runner system.Runner
	engine *routing.Engine
	wg     WGClient
	nl     routing.Netlinker
	logger *logging.Logger
}

// NewManager creates a tunnel lifecycle manager.
func NewManager(cfg config.Config, store *policy.Store, runner system.Runner, engine *routing.Engine, wg WGClient, nl routing.Netlinker, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		cfg:    cfg,
		store:  store,
		runner: runner,
		engine: engine,
		wg:     wg,
		nl:     nl,
		logger: logger.WithComponent("vpn"),
	}
}

// Connect activates the named profile on the single tunnel interface.
func (m *Manager) Connect(profileName string) error {
	profilePath := m.cfg.ProfilePath(profileName)
	if _, err := os.Stat(profilePath); err != nil {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, profileName)
	}

	pol, err := m.store.Load()
	if err != nil {
		return err
	}

	m.logger.Info("switching tunnel profile", "profile", profileName)

	// Wipe every previous tunnel state first, even when reconnecting to
	// the profile that is already active.
	m.CleanupPreviousState()

	content, err := os.ReadFile(profilePath)
	if err != nil {
		return fmt.Errorf("failed to read profile %s: %w", profileName, err)
	}

	if err := os.MkdirAll(m.cfg.WireguardDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", m.cfg.WireguardDir, err)
	}
	if err := os.WriteFile(m.cfg.WGConfigFile(), content, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", m.cfg.WGConfigFile(), err)
	}

	if ok, out := m.runner.Run(true, "wg-quick", "up", m.cfg.WGInterface); !ok {
		return &system.CommandError{Args: []string{"wg-quick", "up", m.cfg.WGInterface}, Output: out}
	}

	// Autostart is only ever enabled for the single interface, never for
	// arbitrary profile names.
	m.setBootPersistence(true)

	if pol.KillSwitchEnabled {
		m.engine.SetKillSwitchActive(false)
		m.logger.Info("kill switch lifted, tunnel provides protection")
	}

	pol.ActiveVPN = profileName
	if err := m.store.Save(pol); err != nil {
		return err
	}

	metrics.TunnelSwitchesTotal.Inc()
	m.logger.Info("tunnel up", "profile", profileName, "interface", m.cfg.WGInterface)
	return nil
}

// Disconnect brings the tunnel down. It is a no-op success when nothing
// is connected.
func (m *Manager) Disconnect() (bool, error) {
	pol, err := m.store.Load()
	if err != nil {
		return false, err
	}

	up, _, _, err := m.wg.DeviceInfo(m.cfg.WGInterface)
	if err != nil {
		m.logger.Warn("could not query tunnel state", "error", err)
	}
	if !up {
		return false, nil
	}

	if ok, out := m.runner.Run(true, "wg-quick", "down", m.cfg.WGInterface); !ok {
		return false, &system.CommandError{Args: []string{"wg-quick", "down", m.cfg.WGInterface}, Output: out}
	}

	m.setBootPersistence(false)

	pol.ActiveVPN = ""
	if err := m.store.Save(pol); err != nil {
		return true, err
	}

	if pol.KillSwitchEnabled {
		m.engine.SetKillSwitchActive(true)
		m.logger.Info("kill switch engaged, forwarding blocked")
	}

	m.logger.Info("tunnel down", "interface", m.cfg.WGInterface)
	return true, nil
}

// Status reports the live tunnel state alongside the policy's notion of
// the active profile.
func (m *Manager) Status() (Status, error) {
	pol, err := m.store.Load()
	if err != nil {
		return Status{}, err
	}

	st := Status{Interface: m.cfg.WGInterface, ActiveProfile: pol.ActiveVPN}

	up, pubKey, handshake, err := m.wg.DeviceInfo(m.cfg.WGInterface)
	if err != nil {
		return st, nil
	}
	st.Connected = up
	st.PublicKey = pubKey
	st.LastHandshake = handshake
	if !up {
		st.ActiveProfile = ""
	}
	return st, nil
}

// setBootPersistence toggles the systemd unit for the single interface.
// Failures are logged, not surfaced: a router without systemd still works.
func (m *Manager) setBootPersistence(enable bool) {
	action := "disable"
	if enable {
		action = "enable"
	}
	unit := "wg-quick@" + m.cfg.WGInterface
	if ok, out := m.runner.Run(true, "systemctl", action, unit); !ok {
		m.logger.Warn("failed to set boot persistence", "action", action, "unit", unit, "error", out)
	}
}

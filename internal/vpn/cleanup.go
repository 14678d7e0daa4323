package vpn

import (
	"os"
	"path/filepath"
	"strings"
)

// CleanupPreviousState tears down ANY tunnel state left by previous
// activations, including units created by a retired provisioning script.
// Every step is best-effort; the goal is a clean slate, not an audit.
//
// The enumeration is explicit: autostart units for every known profile
// name (stored profiles plus every .conf in the wireguard dir), then
// every currently-up WireGuard interface.
func (m *Manager) CleanupPreviousState() {
	m.logger.Info("cleaning up previous tunnel state")

	for _, name := range m.staleUnitNames() {
		unit := "wg-quick@" + name
		m.runner.Run(true, "systemctl", "disable", unit)
		m.runner.Run(true, "systemctl", "stop", unit)
	}

	names, err := m.wg.DeviceNames()
	if err != nil {
		m.logger.Warn("could not list tunnel interfaces", "error", err)
		return
	}
	for _, iface := range names {
		m.logger.Info("shutting down stale tunnel interface", "interface", iface)
		if ok, _ := m.runner.Run(true, "wg-quick", "down", iface); !ok {
			// Common when the config file behind the interface is gone.
			m.logger.Warn("graceful teardown failed, forcing link delete", "interface", iface)
			m.forceLinkDelete(iface)
		}
	}
}

// staleUnitNames collects every name an autostart unit might exist
// under: configs in the wireguard dir and all stored profiles.
func (m *Manager) staleUnitNames() []string {
	seen := map[string]bool{}
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	if matches, err := filepath.Glob(filepath.Join(m.cfg.WireguardDir, "*.conf")); err == nil {
		for _, match := range matches {
			add(strings.TrimSuffix(filepath.Base(match), ".conf"))
		}
	}
	for _, name := range m.ProfileNames() {
		add(name)
	}
	return names
}

func (m *Manager) forceLinkDelete(iface string) {
	link, err := m.nl.LinkByName(iface)
	if err != nil {
		return
	}
	if err := m.nl.LinkDel(link); err != nil {
		m.logger.Warn("forced link delete failed", "interface", iface, "error", err)
	}
}

// ProfileNames lists the stored profile names, sorted by filename.
func (m *Manager) ProfileNames() []string {
	matches, err := filepath.Glob(filepath.Join(m.cfg.ProfilesDir, "*.conf"))
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(match), ".conf"))
	}
	return names
}

// profileExists reports whether a stored profile file is present.
func (m *Manager) profileExists(name string) bool {
	_, err := os.Stat(m.cfg.ProfilePath(name))
	return err == nil
}

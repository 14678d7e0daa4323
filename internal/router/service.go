// Package router glues the policy store, the routing engine, and the
// tunnel manager into one serialized service. Every policy-mutating
// operation runs its full load → kernel-commands → save cycle under a
// single mutex, so overlapping requests cannot race the document or
// interleave rule sequences.
package router

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pgj1978/PI-VPN-Router/internal/config"
	"github.com/pgj1978/PI-VPN-Router/internal/dhcp"
	"github.com/pgj1978/PI-VPN-Router/internal/logging"
	"github.com/pgj1978/PI-VPN-Router/internal/metrics"
	"github.com/pgj1978/PI-VPN-Router/internal/policy"
	"github.com/pgj1978/PI-VPN-Router/internal/routing"
	"github.com/pgj1978/PI-VPN-Router/internal/system"
	"github.com/pgj1978/PI-VPN-Router/internal/vpn"
)

var (
	// ErrDeviceNotFound means the MAC is neither in policy nor
	// discoverable through DHCP leases.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDomainExists means the domain is already in the bypass list.
	ErrDomainExists = errors.New("domain already in bypass list")
	// ErrDomainNotFound means the domain is not in the bypass list.
	ErrDomainNotFound = errors.New("domain not in bypass list")
)

// ApplyResult reports the outcome of a policy mutation. Applied=false
// with a SkipReason is the partial-success state: the policy was saved
// but the kernel-state change could not be made.
type ApplyResult struct {
	Applied    bool     `json:"applied"`
	SkipReason string   `json:"skip_reason,omitempty"`
	IPs        []string `json:"ips,omitempty"`
}

// DeviceView is a device listing entry: live lease data merged with the
// policy's bypass flag.
type DeviceView struct {
	MAC       string `json:"mac"`
	IP        string `json:"ip"`
	Hostname  string `json:"hostname,omitempty"`
	BypassVPN bool   `json:"bypass_vpn"`
}

// Service owns all router operations.
type Service struct {
	mu     sync.Mutex
	cfg    config.Config
	store  *policy.Store
	engine *routing.Engine
	vpn    *vpn.Manager
	leases dhcp.LeaseReader
	runner system.Runner
	logger *logging.Logger
}

// NewService wires the service together.
func NewService(cfg config.Config, store *policy.Store, engine *routing.Engine, vpnMgr *vpn.Manager, leases dhcp.LeaseReader, runner system.Runner, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		cfg:    cfg,
		store:  store,
		engine: engine,
		vpn:    vpnMgr,
		leases: leases,
		runner: runner,
		logger: logger.WithComponent("router"),
	}
}

// ListDevices lists DHCP-known devices with their bypass flags.
func (s *Service) ListDevices() ([]DeviceView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pol, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	leases, err := s.leases.Leases()
	if err != nil {
		return nil, err
	}

	views := make([]DeviceView, 0, len(leases))
	for _, lease := range leases {
		view := DeviceView{MAC: lease.MAC, IP: lease.IP, Hostname: lease.Hostname}
		if dev := pol.FindDevice(lease.MAC); dev != nil {
			view.BypassVPN = dev.BypassVPN
		}
		views = append(views, view)
	}
	return views, nil
}

// SetDeviceBypass flips a device's bypass flag and applies the routing
// change. If the device's IP cannot be resolved from the neighbor table
// the policy change still sticks; the result notes the skipped effect.
func (s *Service) SetDeviceBypass(mac string, enable bool) (ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Tolerate URL-encoded separators leaking through the API layer.
	mac = strings.ReplaceAll(strings.ReplaceAll(mac, "%3A", ":"), "%3a", ":")

	pol, err := s.store.Load()
	if err != nil {
		return ApplyResult{}, err
	}

	dev := pol.FindDevice(mac)
	if dev != nil {
		dev.BypassVPN = enable
	} else {
		leases, err := s.leases.Leases()
		if err != nil {
			return ApplyResult{}, err
		}
		lease := dhcp.FindByMAC(leases, mac)
		if lease == nil {
			return ApplyResult{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, mac)
		}
		pol.Devices = append(pol.Devices, policy.Device{
			MAC:       mac,
			IP:        lease.IP,
			Hostname:  lease.Hostname,
			BypassVPN: enable,
		})
	}

	if err := s.store.Save(pol); err != nil {
		return ApplyResult{}, err
	}

	// Routing wants the device's CURRENT address, not the cached lease:
	// the neighbor table is authoritative at apply time.
	ip, err := s.engine.ResolveDeviceIP(mac)
	if err != nil {
		s.logger.Warn("device routing skipped", "mac", mac, "reason", err)
		metrics.ApplySkippedTotal.Inc()
		return ApplyResult{SkipReason: err.Error()}, nil
	}

	s.engine.ApplyDeviceRouting(ip, enable)
	return ApplyResult{Applied: true, IPs: []string{ip}}, nil
}

// ListDomains returns the domain bypass entries.
func (s *Service) ListDomains() ([]policy.DomainBypass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pol, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return pol.DomainBypasses, nil
}

// AddDomainBypass records a domain and marks its current IPs.
func (s *Service) AddDomainBypass(domain string) (ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pol, err := s.store.Load()
	if err != nil {
		return ApplyResult{}, err
	}
	if !pol.AddDomain(domain) {
		return ApplyResult{}, fmt.Errorf("%w: %s", ErrDomainExists, domain)
	}
	if err := s.store.Save(pol); err != nil {
		return ApplyResult{}, err
	}

	ips, err := s.engine.ApplyDomainBypass(domain, true)
	if err != nil {
		metrics.ApplySkippedTotal.Inc()
		return ApplyResult{SkipReason: err.Error()}, nil
	}
	s.logger.Info("added domain bypass", "domain", domain, "ips", len(ips))
	return ApplyResult{Applied: true, IPs: ips}, nil
}

// RemoveDomainBypass drops a domain and unmarks its re-resolved IPs.
func (s *Service) RemoveDomainBypass(domain string) (ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pol, err := s.store.Load()
	if err != nil {
		return ApplyResult{}, err
	}
	if !pol.RemoveDomain(domain) {
		return ApplyResult{}, fmt.Errorf("%w: %s", ErrDomainNotFound, domain)
	}
	if err := s.store.Save(pol); err != nil {
		return ApplyResult{}, err
	}

	ips, err := s.engine.ApplyDomainBypass(domain, false)
	if err != nil {
		metrics.ApplySkippedTotal.Inc()
		return ApplyResult{SkipReason: err.Error()}, nil
	}
	s.logger.Info("removed domain bypass", "domain", domain, "ips", len(ips))
	return ApplyResult{Applied: true, IPs: ips}, nil
}

// SetKillSwitch persists the flag. The forwarding block is only asserted
// when no tunnel is active; an active tunnel is its own protection.
func (s *Service) SetKillSwitch(enabled bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pol, err := s.store.Load()
	if err != nil {
		return false, err
	}
	pol.KillSwitchEnabled = enabled
	if err := s.store.Save(pol); err != nil {
		return false, err
	}

	switch {
	case enabled && pol.ActiveVPN == "":
		s.engine.SetKillSwitchActive(true)
	case !enabled:
		s.engine.SetKillSwitchActive(false)
	}
	return pol.ActiveVPN != "", nil
}

// KillSwitchEnabled reads the persisted flag.
func (s *Service) KillSwitchEnabled() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pol, err := s.store.Load()
	if err != nil {
		return false, err
	}
	return pol.KillSwitchEnabled, nil
}

// Connect switches the tunnel to the named profile.
func (s *Service) Connect(profileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vpn.Connect(profileName)
}

// Disconnect brings the tunnel down.
func (s *Service) Disconnect() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vpn.Disconnect()
}

// VPNStatus reports the live tunnel state.
func (s *Service) VPNStatus() (vpn.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vpn.Status()
}

// ListProfiles lists stored tunnel profiles.
func (s *Service) ListProfiles() ([]vpn.ProfileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vpn.ListProfiles()
}

// AddProfile stores a new tunnel profile.
func (s *Service) AddProfile(name, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vpn.AddProfile(name, content)
}

// DeleteProfile removes a stored tunnel profile.
func (s *Service) DeleteProfile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vpn.DeleteProfile(name)
}

// SystemInfo captures the current interface and route tables.
func (s *Service) SystemInfo() (interfaces, routes string) {
	if ok, out := s.runner.Run(false, "ip", "addr", "show"); ok {
		interfaces = out
	} else {
		interfaces = "N/A"
	}
	if ok, out := s.runner.Run(false, "ip", "route", "show"); ok {
		routes = out
	} else {
		routes = "N/A"
	}
	return interfaces, routes
}

// Package policy defines the declarative routing policy document and its
// JSON file store. The document is the single source of truth; kernel
// state is derived from it and never read back as authority.
package policy

import "strings"

// Device is a LAN device tracked by MAC address. IP and hostname are
// cached observations from DHCP leases; routing re-resolves the IP from
// the live neighbor table at apply time.
type Device struct {
	MAC       string `json:"mac"`
	IP        string `json:"ip"`
	Hostname  string `json:"hostname,omitempty"`
	BypassVPN bool   `json:"bypass_vpn"`
}

// DomainBypass is a destination domain routed around the tunnel.
// Presence in the document implies the bypass is enabled.
type DomainBypass struct {
	Domain  string `json:"domain"`
	Enabled bool   `json:"enabled"`
}

// RouterPolicy is the full policy document. It is loaded and saved whole
// on every mutation; there are no partial updates.
type RouterPolicy struct {
	ActiveVPN         string         `json:"active_vpn,omitempty"`
	KillSwitchEnabled bool           `json:"kill_switch_enabled"`
	Devices           []Device       `json:"devices"`
	DomainBypasses    []DomainBypass `json:"domain_bypasses"`
}

// Empty returns a fresh policy document.
func Empty() *RouterPolicy {
	return &RouterPolicy{
		Devices:        []Device{},
		DomainBypasses: []DomainBypass{},
	}
}

// FindDevice returns the device entry matching mac, case-insensitively.
func (p *RouterPolicy) FindDevice(mac string) *Device {
	for i := range p.Devices {
		if strings.EqualFold(p.Devices[i].MAC, mac) {
			return &p.Devices[i]
		}
	}
	return nil
}

// HasDomain reports whether domain is already in the bypass list.
// Domain matching is exact.
func (p *RouterPolicy) HasDomain(domain string) bool {
	for _, d := range p.DomainBypasses {
		if d.Domain == domain {
			return true
		}
	}
	return false
}

// AddDomain appends a domain bypass entry. It reports false if the domain
// was already present.
func (p *RouterPolicy) AddDomain(domain string) bool {
	if p.HasDomain(domain) {
		return false
	}
	p.DomainBypasses = append(p.DomainBypasses, DomainBypass{Domain: domain, Enabled: true})
	return true
}

// RemoveDomain deletes a domain bypass entry. It reports false if the
// domain was not present.
func (p *RouterPolicy) RemoveDomain(domain string) bool {
	kept := p.DomainBypasses[:0]
	removed := false
	for _, d := range p.DomainBypasses {
		if d.Domain == domain {
			removed = true
			continue
		}
		kept = append(kept, d)
	}
	p.DomainBypasses = kept
	return removed
}

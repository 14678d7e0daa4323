package routing

import (
	"strings"

	"golang.org/x/sys/unix"

	"github.com/pgj1978/PI-VPN-Router/internal/metrics"
)

// ResolveDeviceIP finds the current IPv4 address for a MAC in the live
// neighbor table. The neighbor cache is only populated by prior traffic,
// so a quiet device legitimately resolves to nothing.
func (e *Engine) ResolveDeviceIP(mac string) (string, error) {
	neighs, err := e.nl.NeighList(0, unix.AF_INET)
	if err != nil {
		return "", err
	}

	for _, n := range neighs {
		if n.HardwareAddr == nil || n.IP == nil {
			continue
		}
		if strings.EqualFold(n.HardwareAddr.String(), mac) {
			return n.IP.String(), nil
		}
	}
	return "", ErrDeviceNotResolved
}

// ApplyDeviceRouting installs or removes the mark and forwarding rules
// for a device IP. Regardless of direction it flushes the route cache
// and drops conntrack state for the IP: without that, existing flows
// stay pinned to their old path.
func (e *Engine) ApplyDeviceRouting(ip string, bypass bool) {
	if bypass {
		e.logger.Info("enabling device bypass", "ip", ip, "mark", e.cfg.BypassMark)

		if err := e.EnsureInfrastructure(); err != nil {
			e.logger.Warn("bypass infrastructure incomplete", "error", err)
		}

		e.ensurePresent(e.markSourceRule(ip))
		e.ensurePresent(e.forwardOutRule(ip))
		e.ensurePresent(e.forwardBackRule(ip))
		metrics.BypassRulesApplied.Inc()
	} else {
		e.logger.Info("disabling device bypass", "ip", ip)

		e.ensureAbsent(e.markSourceRule(ip))
		e.ensureAbsent(e.forwardOutRule(ip))
		e.ensureAbsent(e.forwardBackRule(ip))
		metrics.BypassRulesRemoved.Inc()
	}

	e.flushRouteCache()
	e.dropFlows(ip)
}

// dropFlows clears conntrack entries for ip so in-flight connections are
// forced to re-establish and pick up the new mark.
func (e *Engine) dropFlows(ip string) {
	if e.flows == nil {
		return
	}
	if err := e.flows.FlushIP(ip); err != nil {
		e.logger.Debug("conntrack flush failed", "ip", ip, "error", err)
	}
}

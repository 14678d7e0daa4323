package routing

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// EnsureInfrastructure sets up the shared scaffolding every bypass rule
// depends on: the bypass table's default route, the fwmark lookup rule,
// and the masquerade rule for marked packets. Each step is independently
// idempotent and a failed step does not stop the later ones.
func (e *Engine) EnsureInfrastructure() error {
	var firstErr error

	if err := e.ensureBypassRoute(); err != nil {
		e.logger.Warn("failed to set bypass default route", "error", err)
		firstErr = err
	}

	if err := e.ensureMarkRule(); err != nil {
		e.logger.Warn("failed to set fwmark rule", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	// NAT for marked packets leaving the WAN interface. iptables has no
	// upsert, so delete-then-add keeps exactly one copy.
	if !e.ensurePresent(e.masqueradeRule()) && firstErr == nil {
		firstErr = fmt.Errorf("failed to add masquerade rule")
	}

	return firstErr
}

// ensureBypassRoute replaces the bypass table's default route with one
// via the upstream gateway. Replace rather than add avoids
// duplicate-route errors on repeat calls.
func (e *Engine) ensureBypassRoute() error {
	gw := net.ParseIP(e.cfg.GatewayIP)
	if gw == nil {
		return fmt.Errorf("invalid gateway ip %q", e.cfg.GatewayIP)
	}

	link, err := e.nl.LinkByName(e.cfg.WANInterface)
	if err != nil {
		return fmt.Errorf("wan interface %s: %w", e.cfg.WANInterface, err)
	}

	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Dst:       nil, // default
		Gw:        gw,
		Table:     e.cfg.BypassMark,
	}
	if err := e.nl.RouteReplace(route); err != nil {
		return fmt.Errorf("route replace failed: %w", err)
	}
	return nil
}

// ensureMarkRule makes sure exactly one kernel rule routes packets
// carrying the bypass mark into the bypass table. Rule add has no native
// dedup, so existing rules are fingerprinted first.
func (e *Engine) ensureMarkRule() error {
	rules, err := e.nl.RuleList(unix.AF_INET)
	if err != nil {
		return fmt.Errorf("rule list failed: %w", err)
	}

	for _, r := range rules {
		if r.Mark == uint32(e.cfg.BypassMark) && r.Table == e.cfg.BypassMark {
			return nil
		}
	}

	rule := netlink.NewRule()
	rule.Mark = uint32(e.cfg.BypassMark)
	rule.Table = e.cfg.BypassMark
	rule.Priority = e.cfg.RulePriority
	if err := e.nl.RuleAdd(rule); err != nil {
		return fmt.Errorf("rule add failed: %w", err)
	}
	return nil
}

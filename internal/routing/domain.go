package routing

import (
	"github.com/pgj1978/PI-VPN-Router/internal/metrics"
)

// ApplyDomainBypass resolves a domain and installs (or removes) one
// destination mark rule per resolved IP. The resolved set is never
// cached: removal re-resolves, and if the DNS answer changed in between
// the rules for IPs no longer in the answer are left behind. The caller
// records the domain in policy either way.
//
// It returns the IPs acted on. A resolution failure is returned as an
// error and leaves kernel state untouched.
func (e *Engine) ApplyDomainBypass(domain string, enable bool) ([]string, error) {
	ips, err := e.resolver.LookupA(domain)
	if err != nil {
		e.logger.Warn("could not resolve domain", "domain", domain, "error", err)
		return nil, err
	}

	if enable {
		if len(ips) > 0 {
			if err := e.EnsureInfrastructure(); err != nil {
				e.logger.Warn("bypass infrastructure incomplete", "error", err)
			}
		}
		for _, ip := range ips {
			e.logger.Info("adding domain bypass mark", "domain", domain, "ip", ip)
			e.ensurePresent(e.markDestRule(ip))
		}
		metrics.BypassRulesApplied.Add(float64(len(ips)))
	} else {
		for _, ip := range ips {
			e.logger.Info("removing domain bypass mark", "domain", domain, "ip", ip)
			e.ensureAbsent(e.markDestRule(ip))
		}
		metrics.BypassRulesRemoved.Add(float64(len(ips)))
	}

	e.flushRouteCache()
	return ips, nil
}

package routing

import (
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// DNSResolver looks up A records using the system's resolver
// configuration. Lookups happen at apply time; answers are never cached.
type DNSResolver struct {
	// ResolvConf is the resolver configuration file, normally
	// /etc/resolv.conf.
	ResolvConf string
	// Timeout bounds each DNS exchange.
	Timeout time.Duration
}

// NewDNSResolver creates a resolver using /etc/resolv.conf.
func NewDNSResolver() *DNSResolver {
	return &DNSResolver{
		ResolvConf: "/etc/resolv.conf",
		Timeout:    5 * time.Second,
	}
}

// LookupA resolves a domain to its IPv4 addresses, trying each
// configured nameserver in order until one answers.
func (r *DNSResolver) LookupA(domain string) ([]string, error) {
	cc, err := dns.ClientConfigFromFile(r.ResolvConf)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolver config: %w", err)
	}
	if len(cc.Servers) == 0 {
		return nil, fmt.Errorf("no nameservers configured")
	}

	c := &dns.Client{Timeout: r.Timeout}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range cc.Servers {
		addr := net.JoinHostPort(server, cc.Port)
		resp, _, err := c.Exchange(m, addr)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("lookup %s: rcode %s", domain, dns.RcodeToString[resp.Rcode])
			continue
		}

		var ips []string
		for _, rr := range resp.Answer {
			if a, ok := rr.(*dns.A); ok {
				ips = append(ips, a.A.String())
			}
		}
		return ips, nil
	}
	return nil, fmt.Errorf("lookup %s failed: %w", domain, lastErr)
}

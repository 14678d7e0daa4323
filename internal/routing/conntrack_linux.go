//go:build linux

package routing

import (
	"fmt"
	"net/netip"

	"github.com/ti-mo/conntrack"
)

// ConntrackFlusher drops flows through the conntrack netlink API.
type ConntrackFlusher struct{}

// FlushIP deletes every tracked flow originating from or destined to ip.
func (c *ConntrackFlusher) FlushIP(ip string) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return fmt.Errorf("invalid ip %q: %w", ip, err)
	}

	conn, err := conntrack.Dial(nil)
	if err != nil {
		return fmt.Errorf("conntrack dial failed: %w", err)
	}
	defer conn.Close()

	flows, err := conn.Dump(nil)
	if err != nil {
		return fmt.Errorf("conntrack dump failed: %w", err)
	}

	var lastErr error
	for _, f := range flows {
		if f.TupleOrig.IP.SourceAddress != addr && f.TupleOrig.IP.DestinationAddress != addr {
			continue
		}
		if err := conn.Delete(f); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

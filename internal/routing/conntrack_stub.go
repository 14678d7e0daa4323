//go:build !linux

package routing

import "fmt"

// ConntrackFlusher is a stub on non-Linux platforms.
type ConntrackFlusher struct{}

func (c *ConntrackFlusher) FlushIP(ip string) error {
	return fmt.Errorf("conntrack not supported on this platform")
}

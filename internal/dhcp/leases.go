// Package dhcp reads the dnsmasq lease file used for LAN device
// discovery. The lease file is plain text, one lease per line:
//
//	<expiry> <mac> <ip> <hostname> <client-id>
//
// A hostname of "*" means the client did not send one.
package dhcp

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Lease is a single DHCP lease observation.
type Lease struct {
	Expiry   time.Time
	MAC      string
	IP       string
	Hostname string
}

// LeaseReader lists current DHCP leases.
type LeaseReader interface {
	Leases() ([]Lease, error)
}

// FileLeaseReader reads leases from a dnsmasq lease file. A missing file
// yields an empty list, matching a router that has handed out no leases.
type FileLeaseReader struct {
	Path string
}

// Leases parses the lease file. Malformed lines are skipped.
func (r *FileLeaseReader) Leases() ([]Lease, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open lease file %s: %w", r.Path, err)
	}
	defer f.Close()

	var leases []Lease
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			continue
		}

		lease := Lease{
			MAC: parts[1],
			IP:  parts[2],
		}
		if parts[3] != "*" {
			lease.Hostname = parts[3]
		}
		if epoch, err := strconv.ParseInt(parts[0], 10, 64); err == nil {
			lease.Expiry = time.Unix(epoch, 0)
		}
		leases = append(leases, lease)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lease file %s: %w", r.Path, err)
	}
	return leases, nil
}

// FindByMAC returns the lease whose MAC matches, case-insensitively.
func FindByMAC(leases []Lease, mac string) *Lease {
	for i := range leases {
		if strings.EqualFold(leases[i].MAC, mac) {
			return &leases[i]
		}
	}
	return nil
}

//go:build !linux

package routing

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// RealNetlinker is a stub on non-Linux platforms.
type RealNetlinker struct{}

var errUnsupported = fmt.Errorf("netlink not supported on this platform")

func (r *RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	return nil, errUnsupported
}

func (r *RealNetlinker) LinkList() ([]netlink.Link, error) {
	return nil, errUnsupported
}

func (r *RealNetlinker) LinkDel(link netlink.Link) error {
	return errUnsupported
}

func (r *RealNetlinker) RouteReplace(route *netlink.Route) error {
	return errUnsupported
}

func (r *RealNetlinker) RuleList(family int) ([]netlink.Rule, error) {
	return nil, errUnsupported
}

func (r *RealNetlinker) RuleAdd(rule *netlink.Rule) error {
	return errUnsupported
}

func (r *RealNetlinker) NeighList(linkIndex, family int) ([]netlink.Neigh, error) {
	return nil, errUnsupported
}

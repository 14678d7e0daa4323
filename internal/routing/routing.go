// Package routing reconciles the declarative bypass policy into kernel
// packet-marking, routing-table, and NAT state. Traffic that should skip
// the tunnel is tagged with a fwmark and routed through a dedicated table
// whose default route points at the upstream gateway.
//
// Mark, route, and NAT rules are insert-only primitives with no upsert,
// so every controller goes through the shared delete-then-add helpers in
// rules.go to stay idempotent.
package routing

import (
	"errors"

	"github.com/vishvananda/netlink"

	"github.com/pgj1978/PI-VPN-Router/internal/config"
	"github.com/pgj1978/PI-VPN-Router/internal/logging"
	"github.com/pgj1978/PI-VPN-Router/internal/metrics"
	"github.com/pgj1978/PI-VPN-Router/internal/system"
)

// ErrDeviceNotResolved is returned when a device's MAC has no entry in
// the live neighbor table, so routing cannot be applied yet.
var ErrDeviceNotResolved = errors.New("device has no neighbor table entry")

// Netlinker abstracts the netlink operations the engine needs, so tests
// can run against a mock.
type Netlinker interface {
	LinkByName(name string) (netlink.Link, error)
	LinkList() ([]netlink.Link, error)
	LinkDel(link netlink.Link) error
	RouteReplace(route *netlink.Route) error
	RuleList(family int) ([]netlink.Rule, error)
	RuleAdd(rule *netlink.Rule) error
	NeighList(linkIndex, family int) ([]netlink.Neigh, error)
}

// Resolver performs forward DNS lookups for domain bypasses.
type Resolver interface {
	LookupA(domain string) ([]string, error)
}

// FlowFlusher drops connection-tracking state so in-flight flows are
// forced to re-evaluate their route.
type FlowFlusher interface {
	FlushIP(ip string) error
}

// Engine applies bypass and kill-switch state to the kernel. It holds no
// policy of its own; callers pass in what should be true and the engine
// makes it so, best-effort.
type Engine struct {
	cfg      config.Config
	runner   system.Runner
	nl       Netlinker
	resolver Resolver
	flows    FlowFlusher
	logger   *logging.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(cfg config.Config, runner system.Runner, nl Netlinker, resolver Resolver, flows FlowFlusher, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		cfg:      cfg,
		runner:   runner,
		nl:       nl,
		resolver: resolver,
		flows:    flows,
		logger:   logger.WithComponent("routing"),
	}
}

// run invokes a privileged command through the executor and counts it.
func (e *Engine) run(args ...string) (bool, string) {
	ok, out := e.runner.Run(true, args...)
	metrics.CommandsTotal.Inc()
	if !ok {
		metrics.CommandFailuresTotal.Inc()
	}
	return ok, out
}

// flushRouteCache invalidates cached route lookups so new marks take
// effect for the next packet.
func (e *Engine) flushRouteCache() {
	e.run("ip", "route", "flush", "cache")
}

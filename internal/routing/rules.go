package routing

import "strconv"

// killSwitchComment tags the forwarding-reject rule so it can be found
// and removed regardless of who installed it.
const killSwitchComment = "KILLSWITCH"

// rule is an iptables rule spec. The same (table, chain, match) triple is
// used for both delete and add, which is what makes delete-then-add a
// safe idempotency pattern.
type rule struct {
	table    string // empty means the filter table
	chain    string
	match    []string
	insertAt int // >0 inserts at that position instead of appending
}

func (r rule) args(action string) []string {
	args := []string{"iptables"}
	if r.table != "" {
		args = append(args, "-t", r.table)
	}
	args = append(args, action, r.chain)
	if action == "-I" && r.insertAt > 0 {
		args = append(args, strconv.Itoa(r.insertAt))
	}
	return append(args, r.match...)
}

// ensurePresent installs a rule idempotently: any existing copy is
// deleted first, then exactly one is added. A failed delete just means
// the rule was not there.
func (e *Engine) ensurePresent(r rule) bool {
	e.run(r.args("-D")...)

	action := "-A"
	if r.insertAt > 0 {
		action = "-I"
	}
	ok, out := e.run(r.args(action)...)
	if !ok {
		e.logger.Warn("failed to add rule", "chain", r.chain, "error", out)
	}
	return ok
}

// ensureAbsent removes a rule best-effort; absence is not an error.
func (e *Engine) ensureAbsent(r rule) {
	e.run(r.args("-D")...)
}

// markSourceRule tags packets sourced from ip on the LAN interface with
// the bypass mark (device bypass).
func (e *Engine) markSourceRule(ip string) rule {
	return rule{
		table: "mangle",
		chain: "PREROUTING",
		match: []string{
			"-i", e.cfg.LANInterface,
			"-s", ip,
			"-j", "MARK", "--set-mark", strconv.Itoa(e.cfg.BypassMark),
		},
	}
}

// markDestRule tags packets destined for ip arriving on the LAN
// interface (domain bypass).
func (e *Engine) markDestRule(ip string) rule {
	return rule{
		table: "mangle",
		chain: "PREROUTING",
		match: []string{
			"-i", e.cfg.LANInterface,
			"-d", ip,
			"-j", "MARK", "--set-mark", strconv.Itoa(e.cfg.BypassMark),
		},
	}
}

// forwardOutRule lets a bypassed IP's traffic out the WAN interface even
// under a default-deny forward policy.
func (e *Engine) forwardOutRule(ip string) rule {
	return rule{
		chain: "FORWARD",
		match: []string{
			"-i", e.cfg.LANInterface,
			"-o", e.cfg.WANInterface,
			"-s", ip,
			"-j", "ACCEPT",
		},
	}
}

// forwardBackRule accepts the return direction, restricted to
// established/related connections.
func (e *Engine) forwardBackRule(ip string) rule {
	return rule{
		chain: "FORWARD",
		match: []string{
			"-i", e.cfg.WANInterface,
			"-o", e.cfg.LANInterface,
			"-d", ip,
			"-m", "state", "--state", "ESTABLISHED,RELATED",
			"-j", "ACCEPT",
		},
	}
}

// masqueradeRule NATs marked packets egressing the WAN interface.
func (e *Engine) masqueradeRule() rule {
	return rule{
		table: "nat",
		chain: "POSTROUTING",
		match: []string{
			"-o", e.cfg.WANInterface,
			"-m", "mark", "--mark", strconv.Itoa(e.cfg.BypassMark),
			"-j", "MASQUERADE",
		},
	}
}

// killSwitchRule rejects all forwarding. It is inserted at the top of
// the chain so it wins over any accept rules.
func (e *Engine) killSwitchRule() rule {
	return rule{
		chain:    "FORWARD",
		insertAt: 1,
		match: []string{
			"-m", "comment", "--comment", killSwitchComment,
			"-j", "REJECT",
		},
	}
}

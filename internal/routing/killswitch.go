package routing

// SetKillSwitchActive asserts or clears the forwarding-reject rule. The
// rule carries a fixed identifying comment so toggling is idempotent
// rather than additive. Callers decide WHEN the block applies (only
// while no tunnel is up); this just makes it so.
func (e *Engine) SetKillSwitchActive(active bool) {
	if active {
		e.logger.Info("kill switch activated, forwarding blocked")
		e.ensurePresent(e.killSwitchRule())
	} else {
		e.logger.Info("kill switch deactivated")
		e.ensureAbsent(e.killSwitchRule())
	}
}

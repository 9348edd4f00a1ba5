package dlt645

// ReversePowerEdge latches the sign of total active power and reports the
// non-negative to negative transitions. A first-ever negative reading
// counts as a transition; consecutive negative readings do not.
type ReversePowerEdge struct {
	initialized bool
	lastWatt    float64
}

// Observe feeds one power reading and reports whether the reverse-power
// warning fires for it.
func (e *ReversePowerEdge) Observe(watt float64) bool {
	fired := watt < 0 && (!e.initialized || e.lastWatt >= 0)
	e.initialized = true
	e.lastWatt = watt
	return fired
}

// Last returns the most recent reading and whether one has been seen.
func (e *ReversePowerEdge) Last() (float64, bool) {
	return e.lastWatt, e.initialized
}

package service

import (
	"github.com/hargall/dlt645mqtt/internal/core/port"
	"github.com/hargall/dlt645mqtt/pkg/dlt645"
)

// DefaultPollRotation yields the power register PowerWeight consecutive
// times between single reads of the secondary registers, which advance
// in insertion order. The sequence is deterministic and restarts from
// the same point after Reset.
type DefaultPollRotation struct {
	PowerDI     dlt645.DataIdentifier
	PowerWeight uint
	Entries     []dlt645.DataIdentifier

	powerRun uint
	cursor   int
}

// NewMeterPollRotation builds the standard meter rotation: total active
// power interleaved with energy counters, phase quantities, grid
// frequency and the meter clock registers.
func NewMeterPollRotation(powerWeight uint) *DefaultPollRotation {
	return &DefaultPollRotation{
		PowerDI:     dlt645.DIActivePowerTotal,
		PowerWeight: powerWeight,
		Entries: []dlt645.DataIdentifier{
			dlt645.DIEnergyActiveTotal,
			dlt645.DIEnergyReverseTotal,
			dlt645.DIVoltagePhaseA,
			dlt645.DICurrentPhaseA,
			dlt645.DIPowerFactorTotal,
			dlt645.DIFrequency,
			dlt645.DIDateTime,
			dlt645.DITimeHMS,
		},
	}
}

func (r *DefaultPollRotation) Next() dlt645.DataIdentifier {
	if r.powerRun < r.PowerWeight {
		r.powerRun++
		return r.PowerDI
	}
	r.powerRun = 0
	if len(r.Entries) == 0 {
		return r.PowerDI
	}
	di := r.Entries[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.Entries)
	return di
}

func (r *DefaultPollRotation) Reset() {
	r.powerRun = 0
	r.cursor = 0
}

// ensure interface compliance
var _ port.PollRotation = (*DefaultPollRotation)(nil)

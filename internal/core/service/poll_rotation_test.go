package service

import (
	"testing"

	"github.com/hargall/dlt645mqtt/pkg/dlt645"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotationInterleavesPowerReads(t *testing.T) {

	require := require.New(t)

	rot := &DefaultPollRotation{
		PowerDI:     dlt645.DIActivePowerTotal,
		PowerWeight: 2,
		Entries: []dlt645.DataIdentifier{
			dlt645.DIVoltagePhaseA,
			dlt645.DIFrequency,
		},
	}

	expected := []dlt645.DataIdentifier{
		dlt645.DIActivePowerTotal,
		dlt645.DIActivePowerTotal,
		dlt645.DIVoltagePhaseA,
		dlt645.DIActivePowerTotal,
		dlt645.DIActivePowerTotal,
		dlt645.DIFrequency,
		dlt645.DIActivePowerTotal,
		dlt645.DIActivePowerTotal,
		dlt645.DIVoltagePhaseA,
	}

	for i, want := range expected {
		require.Equal(want, rot.Next(), "tick %d", i)
	}
}

func TestRotationVisitsEverySecondaryEntry(t *testing.T) {

	rot := NewMeterPollRotation(10)

	seen := make(map[dlt645.DataIdentifier]int)
	powerReads := 0
	// two full passes over the secondary entries
	ticks := 2 * len(rot.Entries) * int(rot.PowerWeight+1)
	for i := 0; i < ticks; i++ {
		di := rot.Next()
		if di == rot.PowerDI {
			powerReads++
		} else {
			seen[di]++
		}
	}

	for _, di := range rot.Entries {
		assert.Equal(t, 2, seen[di], "entry %s", di)
	}
	assert.Equal(t, 2*len(rot.Entries)*int(rot.PowerWeight), powerReads)
}

func TestRotationResetRestartsSequence(t *testing.T) {

	require := require.New(t)

	rot := &DefaultPollRotation{
		PowerDI:     dlt645.DIActivePowerTotal,
		PowerWeight: 1,
		Entries: []dlt645.DataIdentifier{
			dlt645.DIVoltagePhaseA,
			dlt645.DIFrequency,
		},
	}

	first := []dlt645.DataIdentifier{rot.Next(), rot.Next(), rot.Next()}
	rot.Reset()
	second := []dlt645.DataIdentifier{rot.Next(), rot.Next(), rot.Next()}

	require.Equal(first, second)
}

func TestRotationWithoutSecondaryEntries(t *testing.T) {

	rot := &DefaultPollRotation{
		PowerDI:     dlt645.DIActivePowerTotal,
		PowerWeight: 1,
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, dlt645.DIActivePowerTotal, rot.Next())
	}
}

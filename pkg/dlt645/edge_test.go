package dlt645

import (
	"testing"
)

func TestReversePowerEdgeFiresOnTransitionOnly(t *testing.T) {
	var edge ReversePowerEdge

	readings := []float64{5, 3, -2, -1, 4, -6}
	var fired []int
	for i, watt := range readings {
		if edge.Observe(watt) {
			fired = append(fired, i)
		}
	}
	if len(fired) != 2 || fired[0] != 2 || fired[1] != 5 {
		t.Errorf("warning fired at %v, want [2 5]", fired)
	}
}

func TestReversePowerEdgeFirstReading(t *testing.T) {
	var edge ReversePowerEdge
	if !edge.Observe(-10) {
		t.Error("a negative first reading is a transition")
	}
	if edge.Observe(-10) {
		t.Error("staying negative must not fire again")
	}

	var edge2 ReversePowerEdge
	if edge2.Observe(10) {
		t.Error("a positive first reading must not fire")
	}
	if last, ok := edge2.Last(); !ok || last != 10 {
		t.Errorf("got %f %v", last, ok)
	}

	// zero counts as non-negative
	var edge3 ReversePowerEdge
	edge3.Observe(0)
	if !edge3.Observe(-1) {
		t.Error("zero to negative is a transition")
	}
}

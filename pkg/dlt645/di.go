package dlt645

import (
	"fmt"
)

type diSpec struct {
	name     string
	kind     ValueKind
	bytes    int
	decimals int
	unit     string
	signed   bool
	// ratioScaled quantities are multiplied by the configured
	// transformer ratio (CT/PT compensation).
	ratioScaled bool
}

// diTable is the protocol-defined registry of supported data identifiers.
// Byte counts and decimal places are fixed by DL/T 645-2007.
var diTable = map[DataIdentifier]diSpec{
	DIDeviceAddress:      {name: "device_address", kind: KindAddress},
	DIActivePowerTotal:   {name: "active_power_total", kind: KindFloat, bytes: 3, decimals: 4, unit: "W", signed: true, ratioScaled: true},
	DIEnergyActiveTotal:  {name: "energy_active_total", kind: KindFloat, bytes: 4, decimals: 2, unit: "kWh", ratioScaled: true},
	DIEnergyReverseTotal: {name: "energy_reverse_total", kind: KindFloat, bytes: 4, decimals: 2, unit: "kWh", ratioScaled: true},
	DIVoltagePhaseA:      {name: "voltage_phase_a", kind: KindFloat, bytes: 2, decimals: 1, unit: "V"},
	DICurrentPhaseA:      {name: "current_phase_a", kind: KindFloat, bytes: 3, decimals: 3, unit: "A", signed: true, ratioScaled: true},
	DIPowerFactorTotal:   {name: "power_factor_total", kind: KindFloat, bytes: 2, decimals: 3, signed: true},
	DIFrequency:          {name: "frequency", kind: KindFloat, bytes: 2, decimals: 2, unit: "Hz"},
	DIDateTime:           {name: "datetime", kind: KindDate, bytes: 4},
	DITimeHMS:            {name: "time_hms", kind: KindTime, bytes: 3},
}

// SupportedDIs returns the registry keys. Order is unspecified.
func SupportedDIs() []DataIdentifier {
	out := make([]DataIdentifier, 0, len(diTable))
	for di := range diTable {
		out = append(out, di)
	}
	return out
}

// IsRatioScaled reports whether values of di are subject to the
// transformer ratio.
func IsRatioScaled(di DataIdentifier) bool {
	spec, ok := diTable[di]
	return ok && spec.ratioScaled
}

// DecodeValue interprets the raw value bytes of a read response (after
// the DI echo) according to the registry. powerRatio multiplies
// ratio-scaled quantities. Unknown identifiers yield UnsupportedDIError.
func DecodeValue(di DataIdentifier, data []byte, powerRatio int) (*MeterValue, error) {
	spec, ok := diTable[di]
	if !ok {
		return nil, &UnsupportedDIError{DI: di}
	}
	if len(data) < spec.bytes {
		return nil, fmt.Errorf("%s: got %d value bytes, want %d", spec.name, len(data), spec.bytes)
	}
	data = data[:spec.bytes]

	value := &MeterValue{DI: di, Kind: spec.kind, Unit: spec.unit, Decimals: spec.decimals}
	switch spec.kind {
	case KindFloat:
		var v float64
		if spec.signed {
			v = bcdToFloatSigned(data, spec.decimals)
		} else {
			v = bcdToFloat(data, spec.decimals)
		}
		if di == DIActivePowerTotal {
			// transmitted as kW with 4 decimals, reported in W
			v *= 1000
			value.Decimals = 1
		}
		if spec.ratioScaled && powerRatio > 1 {
			v *= float64(powerRatio)
		}
		value.Float = v
	case KindDate:
		// wire order: weekday, day, month, two-digit year
		d := MeterDate{
			Weekday: bcdToByte(data[0]),
			Day:     bcdToByte(data[1]),
			Month:   bcdToByte(data[2]),
			Year:    bcdToByte(data[3]),
		}
		if d.Weekday > 6 || d.Day < 1 || d.Day > 31 || d.Month < 1 || d.Month > 12 || d.Year > 99 {
			return nil, fmt.Errorf("%s: implausible fields w=%d d=%d m=%d y=%d", spec.name, d.Weekday, d.Day, d.Month, d.Year)
		}
		if d.Year < 50 {
			d.Year += 2000
		} else {
			d.Year += 1900
		}
		value.Date = d
	case KindTime:
		t := MeterTime{
			Hour:   bcdToByte(data[0]),
			Minute: bcdToByte(data[1]),
			Second: bcdToByte(data[2]),
		}
		if t.Hour > 23 || t.Minute > 59 || t.Second > 59 {
			return nil, fmt.Errorf("%s: implausible fields %02d:%02d:%02d", spec.name, t.Hour, t.Minute, t.Second)
		}
		value.Time = t
	case KindAddress:
		// the interesting value is the sender address in the frame
		// header; the caller fills it in
	}
	return value, nil
}

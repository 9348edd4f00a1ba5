package dlt645

import (
	"errors"
	"testing"
)

func TestDecodePowerWithRatio(t *testing.T) {
	// 0.1234 kW on the wire is 123.4 W; a 10x transformer ratio makes it
	// 1234.0 W on the primary side
	data := []byte{0x34, 0x12, 0x00}

	value, err := DecodeValue(DIActivePowerTotal, data, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(value.Float, 1234.0) {
		t.Errorf("got %f W, want 1234.0", value.Float)
	}
	if value.Unit != "W" || value.Decimals != 1 {
		t.Errorf("got unit %q decimals %d", value.Unit, value.Decimals)
	}

	value, err = DecodeValue(DIActivePowerTotal, data, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(value.Float, 123.4) {
		t.Errorf("got %f W, want 123.4", value.Float)
	}
}

func TestDecodeNegativePower(t *testing.T) {
	// sign bit rides on the most significant byte
	value, err := DecodeValue(DIActivePowerTotal, []byte{0x34, 0x12, 0x80}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(value.Float, -123.4) {
		t.Errorf("got %f W, want -123.4", value.Float)
	}
}

func TestRatioAppliesOnlyToScaledQuantities(t *testing.T) {
	voltage, err := DecodeValue(DIVoltagePhaseA, []byte{0x98, 0x22}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(voltage.Float, 229.8) {
		t.Errorf("voltage must ignore the ratio: got %f V", voltage.Float)
	}

	current, err := DecodeValue(DICurrentPhaseA, []byte{0x30, 0x52, 0x00}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(current.Float, 52.3) {
		t.Errorf("current must scale by the ratio: got %f A", current.Float)
	}

	if !IsRatioScaled(DIEnergyActiveTotal) || IsRatioScaled(DIFrequency) {
		t.Error("ratio registry does not match the quantity kinds")
	}
}

func TestDecodePowerFactor(t *testing.T) {
	value, err := DecodeValue(DIPowerFactorTotal, []byte{0x82, 0x89}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(value.Float, -0.982) {
		t.Errorf("got %f, want -0.982", value.Float)
	}
}

func TestDecodeDate(t *testing.T) {
	value, err := DecodeValue(DIDateTime, []byte{0x06, 0x01, 0x06, 0x24}, 1)
	if err != nil {
		t.Fatal(err)
	}
	d := value.Date
	if d.Weekday != 6 || d.Day != 1 || d.Month != 6 || d.Year != 2024 {
		t.Errorf("got %+v", d)
	}

	// two-digit years 50..99 belong to the last century
	value, err = DecodeValue(DIDateTime, []byte{0x00, 0x15, 0x08, 0x75}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if value.Date.Year != 1975 {
		t.Errorf("got year %d, want 1975", value.Date.Year)
	}

	if _, err := DecodeValue(DIDateTime, []byte{0x02, 0x01, 0x13, 0x24}, 1); err == nil {
		t.Error("month 13 must not decode")
	}
	if _, err := DecodeValue(DIDateTime, []byte{0x07, 0x01, 0x06, 0x24}, 1); err == nil {
		t.Error("weekday 7 must not decode")
	}
}

func TestDecodeTime(t *testing.T) {
	value, err := DecodeValue(DITimeHMS, []byte{0x14, 0x30, 0x00}, 1)
	if err != nil {
		t.Fatal(err)
	}
	tm := value.Time
	if tm.Hour != 14 || tm.Minute != 30 || tm.Second != 0 {
		t.Errorf("got %s", tm)
	}

	if _, err := DecodeValue(DITimeHMS, []byte{0x25, 0x00, 0x00}, 1); err == nil {
		t.Error("hour 25 must not decode")
	}
}

func TestDecodeUnknownIdentifier(t *testing.T) {
	_, err := DecodeValue(DataIdentifier(0x0203FFFF), []byte{0x00}, 1)
	var unsupported *UnsupportedDIError
	if !errors.As(err, &unsupported) {
		t.Errorf("got %v", err)
	}
}

func TestDecodeShortData(t *testing.T) {
	if _, err := DecodeValue(DIEnergyActiveTotal, []byte{0x67, 0x45}, 1); err == nil {
		t.Error("two bytes cannot carry a four byte register")
	}
}

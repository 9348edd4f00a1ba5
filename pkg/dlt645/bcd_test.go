package dlt645

import (
	"bytes"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBCDToFloat(t *testing.T) {
	// voltage style: 2 bytes, 1 decimal, least significant pair first
	if v := bcdToFloat([]byte{0x34, 0x12}, 1); !almostEqual(v, 123.4) {
		t.Errorf("got %f, want 123.4", v)
	}
	// energy style: 4 bytes, 2 decimals
	if v := bcdToFloat([]byte{0x67, 0x45, 0x23, 0x01}, 2); !almostEqual(v, 12345.67) {
		t.Errorf("got %f, want 12345.67", v)
	}
	if v := bcdToFloat([]byte{0x00, 0x00}, 2); v != 0 {
		t.Errorf("got %f, want 0", v)
	}
}

func TestBCDSignBit(t *testing.T) {
	// -1.2340 kW in the power encoding: 3 bytes, 4 decimals, sign bit on
	// the most significant byte
	if v := bcdToFloatSigned([]byte{0x40, 0x23, 0x81}, 4); !almostEqual(v, -1.234) {
		t.Errorf("got %f, want -1.234", v)
	}
	if v := bcdToFloatSigned([]byte{0x40, 0x23, 0x01}, 4); !almostEqual(v, 1.234) {
		t.Errorf("got %f, want 1.234", v)
	}
	// sign must not leak into the digit nibbles
	if v := bcdToFloatSigned([]byte{0x00, 0x00, 0x80}, 4); v != 0 {
		t.Errorf("got %f, want -0 == 0", v)
	}
}

func TestFloatToBCD(t *testing.T) {
	if got := floatToBCD(12345.67, 4, 2); !bytes.Equal(got, []byte{0x67, 0x45, 0x23, 0x01}) {
		t.Errorf("got % X", got)
	}
	if got := floatToBCD(-1.234, 3, 4); !bytes.Equal(got, []byte{0x40, 0x23, 0x81}) {
		t.Errorf("got % X", got)
	}
	// rounding, not truncation
	if got := floatToBCD(0.9999, 2, 2); !bytes.Equal(got, []byte{0x00, 0x01}) {
		t.Errorf("got % X", got)
	}
}

func TestSingleByteBCD(t *testing.T) {
	for _, v := range []int{0, 9, 10, 59, 99} {
		if got := bcdToByte(byteToBCD(v)); got != v {
			t.Errorf("%d does not survive the round trip: %d", v, got)
		}
	}
	if byteToBCD(59) != 0x59 {
		t.Errorf("59 should pack as 0x59, got 0x%02X", byteToBCD(59))
	}
}

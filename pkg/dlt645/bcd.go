package dlt645

import (
	"math"
)

// bcdToFloat converts little-endian packed BCD to a float with the given
// number of decimal places. Bytes arrive least significant pair first, so
// digits accumulate from the top down.
func bcdToFloat(data []byte, decimals int) float64 {
	var n uint64
	for i := len(data) - 1; i >= 0; i-- {
		n = n*100 + uint64((data[i]>>4)&0x0F)*10 + uint64(data[i]&0x0F)
	}
	return float64(n) / math.Pow10(decimals)
}

// bcdToFloatSigned handles the protocol sign convention: bit 7 of the most
// significant byte (the last one on the wire) flags a negative value.
func bcdToFloatSigned(data []byte, decimals int) float64 {
	if len(data) == 0 {
		return 0
	}
	last := data[len(data)-1]
	negative := last&0x80 != 0
	if !negative {
		return bcdToFloat(data, decimals)
	}
	clean := make([]byte, len(data))
	copy(clean, data)
	clean[len(clean)-1] = last &^ 0x80
	return -bcdToFloat(clean, decimals)
}

// byteToBCD packs 0..99 into one BCD byte.
func byteToBCD(v int) byte {
	return byte((v/10)<<4 | v%10)
}

// bcdToByte unpacks one BCD byte. Non-decimal nibbles produce values
// outside 0..99, which callers treat as invalid.
func bcdToByte(b byte) int {
	return int((b>>4)&0x0F)*10 + int(b&0x0F)
}

// floatToBCD renders a value as little-endian packed BCD with the given
// width and decimal places, applying the sign bit when negative. Values
// that do not fit are truncated to the available digits.
func floatToBCD(v float64, width, decimals int) []byte {
	negative := v < 0
	scaled := uint64(math.Round(math.Abs(v) * math.Pow10(decimals)))
	out := make([]byte, width)
	for i := 0; i < width; i++ {
		out[i] = byteToBCD(int(scaled % 100))
		scaled /= 100
	}
	if negative {
		out[width-1] |= 0x80
	}
	return out
}

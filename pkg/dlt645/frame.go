package dlt645

const (
	startMarker = 0x68
	endMarker   = 0x16
	wakeupByte  = 0xFE

	// Every payload byte is offset by 0x33 on the wire. No BCD byte can
	// then alias the end marker; the rest of the framing is length-driven.
	payloadOffset = 0x33

	// MaxPayloadLen is the largest payload the length byte may declare.
	MaxPayloadLen = 200

	// minFrameLen is a frame with an empty payload: two markers, address,
	// control, length, checksum, end.
	minFrameLen = 12
)

// Control codes. Responses echo the request code with bit 7 set; the
// 0x40 bit flags a meter-reported error.
const (
	CtrlReadRequest   = 0x11
	CtrlReadResponse  = 0x91
	CtrlWriteRequest  = 0x14
	CtrlWriteResponse = 0x94
	CtrlRelayRequest  = 0x1C
	CtrlRelayResponse = 0x9C
	CtrlBroadcastSync = 0x08
)

// Frame is the logical content of one wire frame. Payload holds raw bytes,
// before the +0x33 wire obfuscation.
type Frame struct {
	Address Address
	Control byte
	Payload []byte
}

// EncodeFrame renders the wire form of f, prefixed with the two-byte
// wakeup preamble the bus needs before a master transmission.
func EncodeFrame(f Frame) []byte {
	out := make([]byte, 0, len(f.Payload)+minFrameLen+2)
	out = append(out, wakeupByte, wakeupByte)
	start := len(out)
	out = append(out, startMarker)
	out = append(out, f.Address[:]...)
	out = append(out, startMarker)
	out = append(out, f.Control)
	out = append(out, byte(len(f.Payload)))
	for _, b := range f.Payload {
		out = append(out, b+payloadOffset)
	}
	var sum byte
	for _, b := range out[start:] {
		sum += b
	}
	out = append(out, sum, endMarker)
	return out
}

// DecodeFrame parses exactly one frame from buf. Leading wakeup bytes are
// skipped; anything else before the start marker, a checksum mismatch, or
// surplus bytes after the end marker fail the decode. Decode is
// all-or-nothing.
func DecodeFrame(buf []byte) (*Frame, error) {
	idx := 0
	for idx < len(buf) && buf[idx] == wakeupByte {
		idx++
	}
	if len(buf)-idx < minFrameLen {
		return nil, frameErrorf(LengthMismatch, "%d bytes after preamble, need at least %d", len(buf)-idx, minFrameLen)
	}
	if buf[idx] != startMarker {
		return nil, frameErrorf(BadMarker, "start marker 0x%02X at offset %d", buf[idx], idx)
	}
	if buf[idx+7] != startMarker {
		return nil, frameErrorf(BadMarker, "second start marker 0x%02X", buf[idx+7])
	}
	payloadLen := int(buf[idx+9])
	if payloadLen > MaxPayloadLen {
		return nil, frameErrorf(LengthMismatch, "declared payload length %d exceeds %d", payloadLen, MaxPayloadLen)
	}
	total := minFrameLen + payloadLen
	if len(buf)-idx != total {
		return nil, frameErrorf(LengthMismatch, "declared %d payload bytes, frame is %d of %d bytes", payloadLen, len(buf)-idx, total)
	}
	var sum byte
	for _, b := range buf[idx : idx+10+payloadLen] {
		sum += b
	}
	if sum != buf[idx+10+payloadLen] {
		return nil, frameErrorf(BadChecksum, "computed 0x%02X, frame carries 0x%02X", sum, buf[idx+10+payloadLen])
	}
	if buf[idx+total-1] != endMarker {
		return nil, frameErrorf(BadMarker, "end marker 0x%02X", buf[idx+total-1])
	}

	f := &Frame{Control: buf[idx+8]}
	copy(f.Address[:], buf[idx+1:idx+7])
	if payloadLen > 0 {
		f.Payload = make([]byte, payloadLen)
		for i := 0; i < payloadLen; i++ {
			f.Payload[i] = buf[idx+10+i] - payloadOffset
		}
	}
	return f, nil
}

// readRequestPayload builds the 4-byte payload of a read request: the
// data identifier, least significant byte first.
func readRequestPayload(di DataIdentifier) []byte {
	return []byte{
		byte(di),
		byte(di >> 8),
		byte(di >> 16),
		byte(di >> 24),
	}
}

// responseDI extracts the echoed data identifier from the first four
// payload bytes of a read response.
func responseDI(payload []byte) (DataIdentifier, bool) {
	if len(payload) < 4 {
		return 0, false
	}
	di := DataIdentifier(payload[0]) |
		DataIdentifier(payload[1])<<8 |
		DataIdentifier(payload[2])<<16 |
		DataIdentifier(payload[3])<<24
	return di, true
}

package dlt645

import (
	"sync"
	"time"
)

// simAddress is the fixed address of the simulated meter, digits
// 000123456789 in wire order.
var simAddress = Address{0x89, 0x67, 0x45, 0x23, 0x01, 0x00}

// simPowerKW rotates through plausible total power readings, including a
// reverse-power dip so the derived warning path gets exercised.
var simPowerKW = []float64{1.2340, 1.5012, 0.8410, -0.3120, -0.2875, 2.1050}

// SimTransport substitutes a meter at the transport boundary: requests
// written to it are parsed with the real codec and answered with
// checksum-valid response frames, so the receive path is identical to
// live traffic.
type SimTransport struct {
	mu   sync.Mutex
	rx   []byte
	tick int
}

func NewSimTransport() *SimTransport {
	return &SimTransport{}
}

func (t *SimTransport) Open() error {
	return nil
}

func (t *SimTransport) Close() error {
	return nil
}

func (t *SimTransport) Write(p []byte) error {
	request, err := DecodeFrame(p)
	if err != nil {
		// garbage on the line: a real meter stays silent
		return nil
	}
	if !request.Address.IsBroadcast() && !request.Address.IsWildcard() && request.Address != simAddress {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch request.Control {
	case CtrlReadRequest:
		t.queueReadResponse(request)
	case CtrlWriteRequest:
		t.queue(Frame{Address: simAddress, Control: CtrlWriteResponse})
	case CtrlRelayRequest:
		t.queue(Frame{Address: simAddress, Control: CtrlRelayResponse})
	case CtrlBroadcastSync:
		// broadcasts are never acknowledged
	}
	return nil
}

func (t *SimTransport) ReadAvailable(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := copy(p, t.rx)
	t.rx = t.rx[n:]
	return n, nil
}

func (t *SimTransport) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rx = nil
	return nil
}

func (t *SimTransport) queue(f Frame) {
	t.rx = append(t.rx, EncodeFrame(f)...)
}

func (t *SimTransport) queueReadResponse(request *Frame) {
	di, ok := responseDI(request.Payload)
	if !ok {
		t.queue(Frame{Address: simAddress, Control: 0xD1, Payload: []byte{0x01}})
		return
	}
	value, found := t.valueBytes(di)
	if !found {
		t.queue(Frame{Address: simAddress, Control: 0xD1, Payload: []byte{0x02}})
		return
	}
	payload := append(readRequestPayload(di), value...)
	t.queue(Frame{Address: simAddress, Control: CtrlReadResponse, Payload: payload})
	t.tick++
}

func (t *SimTransport) valueBytes(di DataIdentifier) ([]byte, bool) {
	now := time.Now()
	switch di {
	case DIDeviceAddress:
		return simAddress[:], true
	case DIActivePowerTotal:
		kw := simPowerKW[t.tick%len(simPowerKW)]
		return floatToBCD(kw, 3, 4), true
	case DIEnergyActiveTotal:
		return floatToBCD(12345.67+0.01*float64(t.tick), 4, 2), true
	case DIEnergyReverseTotal:
		return floatToBCD(321.04, 4, 2), true
	case DIVoltagePhaseA:
		return floatToBCD(229.8, 2, 1), true
	case DICurrentPhaseA:
		return floatToBCD(5.230, 3, 3), true
	case DIPowerFactorTotal:
		return floatToBCD(0.982, 2, 3), true
	case DIFrequency:
		return floatToBCD(50.02, 2, 2), true
	case DIDateTime:
		return []byte{
			byteToBCD(int(now.Weekday())),
			byteToBCD(now.Day()),
			byteToBCD(int(now.Month())),
			byteToBCD(now.Year() % 100),
		}, true
	case DITimeHMS:
		return []byte{
			byteToBCD(now.Hour()),
			byteToBCD(now.Minute()),
			byteToBCD(now.Second()),
		}, true
	default:
		return nil, false
	}
}

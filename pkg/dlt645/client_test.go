package dlt645

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

// recordingTransport swallows every frame and keeps a copy for inspection.
type recordingTransport struct {
	deadTransport
	frames [][]byte
}

func (r *recordingTransport) Write(p []byte) error {
	r.frames = append(r.frames, append([]byte(nil), p...))
	return nil
}

func testClientConfig() MeterClientConfig {
	return MeterClientConfig{
		PowerRatio:       10,
		Timeout:          30 * time.Millisecond,
		DiscoveryTimeout: 30 * time.Millisecond,
		ByteGap:          5 * time.Millisecond,
	}
}

func SimulatedReader() MeterReader {
	logger := zap.Must(zap.NewDevelopment())
	reader, err := CreateSimulatedMeterReader(testClientConfig(), logger, nil)
	if err != nil {
		panic(err)
	}
	return reader
}

func TestSimulatedMeterWalk(t *testing.T) {
	reader := SimulatedReader()

	err := reader.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	addr, err := reader.Discover()
	if err != nil {
		t.Fatal(err)
	}
	fmt.Printf("Meter address: %s\n", addr)

	if learned, ok := reader.DeviceAddress(); !ok || learned != addr {
		t.Errorf("address not cached after discovery: %s %v", learned, ok)
	}

	for _, di := range []DataIdentifier{
		DIActivePowerTotal,
		DIEnergyActiveTotal,
		DIEnergyReverseTotal,
		DIVoltagePhaseA,
		DICurrentPhaseA,
		DIPowerFactorTotal,
		DIFrequency,
	} {
		value, err := reader.ReadMeasurement(di)
		if err != nil {
			t.Error(err)
			continue
		}
		fmt.Printf("%s: %.4f %s\n", di, value.Float, value.Unit)
	}

	dt, err := reader.ReadMeasurement(DIDateTime)
	if err != nil {
		t.Error(err)
	} else {
		fmt.Printf("Meter date: %+v\n", dt.Date)
	}
	tm, err := reader.ReadMeasurement(DITimeHMS)
	if err != nil {
		t.Error(err)
	} else {
		fmt.Printf("Meter time: %s\n", tm.Time)
	}

	if err := reader.RelayTrip(); err != nil {
		t.Error(err)
	}
	if err := reader.RelayClose(); err != nil {
		t.Error(err)
	}
	now := time.Now()
	if err := reader.SetDate(now); err != nil {
		t.Error(err)
	}
	if err := reader.SetTime(now); err != nil {
		t.Error(err)
	}
	if err := reader.BroadcastTimeSync(now); err != nil {
		t.Error(err)
	}
}

func TestReadAppliesPowerRatio(t *testing.T) {
	// meter reports 0.1234 kW; a 10x transformer ratio yields 1234.0 W
	response := EncodeFrame(Frame{
		Address: testAddress,
		Control: CtrlReadResponse,
		Payload: append(readRequestPayload(DIActivePowerTotal), 0x34, 0x12, 0x00),
	})
	client := NewMeterClient(&dribbleTransport{response: response}, testClientConfig(), zap.NewNop(), nil)

	value, err := client.ReadMeasurement(DIActivePowerTotal)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(value.Float, 1234.0) {
		t.Errorf("got %f W, want 1234.0", value.Float)
	}

	// the response header address is learned as a side effect
	if learned, ok := client.DeviceAddress(); !ok || learned != testAddress {
		t.Errorf("address not learned from response: %s %v", learned, ok)
	}
}

func TestBroadcastTimeSyncFrame(t *testing.T) {
	transport := &recordingTransport{}
	client := NewMeterClient(transport, testClientConfig(), zap.NewNop(), nil)

	clock := time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)
	if err := client.BroadcastTimeSync(clock); err != nil {
		t.Fatal(err)
	}

	if len(transport.frames) != 1 {
		t.Fatalf("got %d frames, want exactly 1", len(transport.frames))
	}
	frame, err := DecodeFrame(transport.frames[0])
	if err != nil {
		t.Fatal(err)
	}
	if frame.Control != CtrlBroadcastSync {
		t.Errorf("got control 0x%02X, want 0x08", frame.Control)
	}
	if !frame.Address.IsBroadcast() {
		t.Errorf("got address %s, want broadcast", frame.Address)
	}
	if !bytes.Equal(frame.Payload, []byte{0x24, 0x06, 0x01, 0x14, 0x30}) {
		t.Errorf("got payload % X", frame.Payload)
	}
	// fire and forget: the exchange machine never ran
	if client.session.State() != SessionIdle {
		t.Errorf("state %s, want idle", client.session.State())
	}
}

func TestRelayCommandFrame(t *testing.T) {
	transport := &recordingTransport{}
	client := NewMeterClient(transport, testClientConfig(), zap.NewNop(), nil)

	err := client.RelayTrip()
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("nothing answers a recorder, got %v", err)
	}

	// the retry budget re-sends the identical frame
	if len(transport.frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(transport.frames))
	}
	if !bytes.Equal(transport.frames[0], transport.frames[1]) ||
		!bytes.Equal(transport.frames[1], transport.frames[2]) {
		t.Error("retries must re-send the identical request")
	}

	frame, err := DecodeFrame(transport.frames[0])
	if err != nil {
		t.Fatal(err)
	}
	if frame.Control != CtrlRelayRequest {
		t.Errorf("got control 0x%02X, want 0x1C", frame.Control)
	}
	want := append([]byte{relayCmdTrip}, make([]byte, 8)...)
	if !bytes.Equal(frame.Payload, want) {
		t.Errorf("got payload % X, want % X", frame.Payload, want)
	}
	if !frame.Address.IsWildcard() {
		t.Errorf("unlearned client must target the wildcard address, got %s", frame.Address)
	}
}

func TestClockWriteFrames(t *testing.T) {
	transport := &recordingTransport{}
	client := NewMeterClient(transport, testClientConfig(), zap.NewNop(), nil)

	clock := time.Date(2024, 6, 1, 14, 30, 45, 0, time.UTC) // a Saturday

	_ = client.SetTime(clock)
	frame, err := DecodeFrame(transport.frames[0])
	if err != nil {
		t.Fatal(err)
	}
	if frame.Control != CtrlWriteRequest {
		t.Errorf("got control 0x%02X, want 0x14", frame.Control)
	}
	// identifier, password, operator, then second/minute/hour
	want := []byte{0x02, 0x01, 0x00, 0x04, 0, 0, 0, 0, 0, 0, 0, 0, 0x45, 0x30, 0x14}
	if !bytes.Equal(frame.Payload, want) {
		t.Errorf("got payload % X\nwant % X", frame.Payload, want)
	}

	transport.frames = nil
	_ = client.SetDate(clock)
	frame, err = DecodeFrame(transport.frames[0])
	if err != nil {
		t.Fatal(err)
	}
	// identifier, password, operator, then weekday/day/month/year
	want = []byte{0x01, 0x01, 0x00, 0x04, 0, 0, 0, 0, 0, 0, 0, 0, 0x06, 0x01, 0x06, 0x24}
	if !bytes.Equal(frame.Payload, want) {
		t.Errorf("got payload % X\nwant % X", frame.Payload, want)
	}
}

func TestReadUnknownIdentifierFails(t *testing.T) {
	reader := SimulatedReader()
	if err := reader.Open(); err != nil {
		t.Fatal(err)
	}

	// the simulated meter answers unknown identifiers with an abnormal
	// control code, which the session never accepts
	_, err := reader.ReadMeasurement(DataIdentifier(0x0203FFFF))
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("got %v", err)
	}
	var response *ResponseError
	if !errors.As(err, &response) {
		t.Fatalf("got cause %v", timeout.Cause)
	}
	if response.Control != 0xD1 {
		t.Errorf("got control 0x%02X, want 0xD1", response.Control)
	}
}

func TestDeviceAddressMeasurement(t *testing.T) {
	reader := SimulatedReader()
	if err := reader.Open(); err != nil {
		t.Fatal(err)
	}

	value, err := reader.ReadMeasurement(DIDeviceAddress)
	if err != nil {
		t.Fatal(err)
	}
	if value.Kind != KindAddress {
		t.Fatalf("got kind %v", value.Kind)
	}
	if value.Address.String() != "000123456789" {
		t.Errorf("got %s", value.Address)
	}
}

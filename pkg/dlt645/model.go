package dlt645

import (
	"fmt"
	"time"
)

// Address is a DL/T 645-2007 meter address: 12 BCD digits in 6 bytes,
// stored in wire order (least significant byte first).
type Address [6]byte

var (
	// BroadcastAddress targets every meter on the bus. Responses to it
	// never carry it back as the sender address.
	BroadcastAddress = Address{0x99, 0x99, 0x99, 0x99, 0x99, 0x99}
	// WildcardAddress matches any single meter. Used until the real
	// address has been learned.
	WildcardAddress = Address{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}
)

func (a Address) String() string {
	return fmt.Sprintf("%02X%02X%02X%02X%02X%02X", a[5], a[4], a[3], a[2], a[1], a[0])
}

func (a Address) IsBroadcast() bool {
	return a == BroadcastAddress
}

func (a Address) IsWildcard() bool {
	return a == WildcardAddress
}

// DataIdentifier is the 4-byte register/measurement selector defined by
// the protocol.
type DataIdentifier uint32

const (
	DIDeviceAddress      DataIdentifier = 0x04000401
	DIActivePowerTotal   DataIdentifier = 0x02030000
	DIEnergyActiveTotal  DataIdentifier = 0x00010000
	DIEnergyReverseTotal DataIdentifier = 0x00020000
	DIVoltagePhaseA      DataIdentifier = 0x02010100
	DICurrentPhaseA      DataIdentifier = 0x02020100
	DIPowerFactorTotal   DataIdentifier = 0x02060000
	DIFrequency          DataIdentifier = 0x02800002
	DIDateTime           DataIdentifier = 0x04000101
	DITimeHMS            DataIdentifier = 0x04000102
)

func (di DataIdentifier) String() string {
	if spec, ok := diTable[di]; ok {
		return spec.name
	}
	return fmt.Sprintf("di(0x%08X)", uint32(di))
}

type ValueKind int

const (
	KindFloat ValueKind = iota
	KindDate
	KindTime
	KindAddress
)

// MeterDate is the meter calendar register. Weekday follows the wire
// convention, 0 = Sunday.
type MeterDate struct {
	Year    int
	Month   int
	Day     int
	Weekday int
}

func (d MeterDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

type MeterTime struct {
	Hour   int
	Minute int
	Second int
}

func (t MeterTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// MeterValue is one decoded measurement. Kind selects which of the value
// fields is meaningful.
type MeterValue struct {
	DI       DataIdentifier
	Kind     ValueKind
	Float    float64
	Unit     string
	Decimals int
	Date     MeterDate
	Time     MeterTime
	Address  Address
}

// MeterReader is the master-side engine facade. All operations block with
// the timeouts given at construction and serialize on the single
// half-duplex line.
type MeterReader interface {
	Open() error
	Close() error
	// DeviceAddress reports the learned meter address, if any.
	DeviceAddress() (Address, bool)
	// Discover issues a broadcast address query and learns the address
	// from the response.
	Discover() (Address, error)
	ReadMeasurement(di DataIdentifier) (*MeterValue, error)
	RelayTrip() error
	RelayClose() error
	SetDate(t time.Time) error
	SetTime(t time.Time) error
	// BroadcastTimeSync is fire-and-forget: no response is awaited.
	BroadcastTimeSync(t time.Time) error
}

type MeterInstrument struct {
	RecordTime func(fnName string, elapsed time.Duration)
}

func RecordTimer(name string, instrument []MeterInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, elapsed)
		}
	}
}

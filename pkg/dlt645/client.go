package dlt645

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// standardBaudRates are the speeds discovery cycles through when the
// configured rate finds no meter.
var standardBaudRates = []int{1200, 2400, 4800, 9600}

const (
	relayCmdTrip  = 0x1A
	relayCmdClose = 0x1B
)

type MeterClientConfig struct {
	// PowerRatio is the external CT/PT transformer ratio applied to
	// current, power and energy readings. 1 disables scaling.
	PowerRatio int
	// Timeout bounds one exchange attempt.
	Timeout time.Duration
	// DiscoveryTimeout bounds one broadcast address-query attempt.
	DiscoveryTimeout time.Duration
	// ByteGap is the receive silence that closes a response.
	ByteGap time.Duration
	// MaxRetries is the total send attempt budget per exchange.
	MaxRetries int
	// RxBufferSize caps the accumulated response bytes.
	RxBufferSize int
	// CycleBaudOnDiscoveryFail walks the standard baud rates when a
	// discovery attempt times out, one step per failure.
	CycleBaudOnDiscoveryFail bool
}

func (cfg MeterClientConfig) withDefaults() MeterClientConfig {
	if cfg.PowerRatio <= 0 {
		cfg.PowerRatio = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1000 * time.Millisecond
	}
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = 2000 * time.Millisecond
	}
	if cfg.ByteGap <= 0 {
		cfg.ByteGap = 20 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RxBufferSize <= 0 {
		cfg.RxBufferSize = 256
	}
	return cfg
}

// MeterClient implements MeterReader over any Transport. The embedded
// Session serializes all line access.
type MeterClient struct {
	transport  Transport
	session    *Session
	cfg        MeterClientConfig
	logger     *zap.Logger
	instrument []MeterInstrument

	mu         sync.Mutex
	address    Address
	discovered bool
	baudIdx    int
}

func NewMeterClient(transport Transport, cfg MeterClientConfig, logger *zap.Logger, instrumentation *MeterInstrument) *MeterClient {
	cfg = cfg.withDefaults()

	var inst []MeterInstrument
	logInst := traceMeterInstrumentation(logger.With(zap.String("target", "meter")))
	if logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	return &MeterClient{
		transport: transport,
		session: NewSession(transport, SessionConfig{
			MaxRetries:   cfg.MaxRetries,
			ByteGap:      cfg.ByteGap,
			RxBufferSize: cfg.RxBufferSize,
		}, logger),
		cfg:        cfg,
		logger:     logger,
		instrument: inst,
		address:    WildcardAddress,
	}
}

// CreateSerialMeterReader builds a reader over a serial device at 8E1.
func CreateSerialMeterReader(device string, baud int, cfg MeterClientConfig, logger *zap.Logger,
	instrumentation *MeterInstrument) (MeterReader, error) {
	if device == "" {
		return nil, errors.New("serial device path is empty")
	}
	client := NewMeterClient(NewSerialTransport(device, baud), cfg, logger, instrumentation)
	for i, rate := range standardBaudRates {
		if rate == baud {
			client.baudIdx = i
		}
	}
	return client, nil
}

// CreateSimulatedMeterReader builds a reader backed by the simulated
// transport. The full codec and session paths still run.
func CreateSimulatedMeterReader(cfg MeterClientConfig, logger *zap.Logger,
	instrumentation *MeterInstrument) (MeterReader, error) {
	return NewMeterClient(NewSimTransport(), cfg, logger, instrumentation), nil
}

func (c *MeterClient) Open() error {
	return c.transport.Open()
}

func (c *MeterClient) Close() error {
	return c.transport.Close()
}

func (c *MeterClient) DeviceAddress() (Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address, c.discovered
}

// target is the address outgoing requests carry: the learned one, or the
// wildcard until discovery has happened.
func (c *MeterClient) target() Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address
}

// learnAddress caches the sender address of a valid response. Broadcast
// and wildcard never identify a meter.
func (c *MeterClient) learnAddress(addr Address) {
	if addr.IsBroadcast() || addr.IsWildcard() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.discovered {
		c.logger.Info("learned meter address", zap.String("address", addr.String()))
	}
	c.address = addr
	c.discovered = true
}

func (c *MeterClient) Discover() (Address, error) {
	defer RecordTimer("Discover", c.instrument)()
	request := EncodeFrame(Frame{
		Address: BroadcastAddress,
		Control: CtrlReadRequest,
		Payload: readRequestPayload(DIDeviceAddress),
	})
	frame, err := c.session.Exchange(request, CtrlReadResponse, c.cfg.DiscoveryTimeout)
	if err != nil {
		c.maybeCycleBaud(err)
		return Address{}, err
	}
	c.learnAddress(frame.Address)
	if frame.Address.IsBroadcast() || frame.Address.IsWildcard() {
		return Address{}, errors.New("discovery response carried no usable address")
	}
	return frame.Address, nil
}

func (c *MeterClient) ReadMeasurement(di DataIdentifier) (*MeterValue, error) {
	defer RecordTimer("ReadMeasurement", c.instrument)()
	request := EncodeFrame(Frame{
		Address: c.target(),
		Control: CtrlReadRequest,
		Payload: readRequestPayload(di),
	})
	frame, err := c.session.Exchange(request, CtrlReadResponse, c.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	c.learnAddress(frame.Address)

	respDI, ok := responseDI(frame.Payload)
	if !ok {
		return nil, frameErrorf(LengthMismatch, "read response payload has %d bytes, identifier needs 4", len(frame.Payload))
	}
	if respDI != di {
		// the response identifier is authoritative for decoding
		c.logger.Debug("response identifier differs from request",
			zap.String("requested", di.String()),
			zap.String("received", respDI.String()))
	}
	value, err := DecodeValue(respDI, frame.Payload[4:], c.cfg.PowerRatio)
	if err != nil {
		return nil, err
	}
	if value.Kind == KindAddress {
		value.Address = frame.Address
	}
	return value, nil
}

func (c *MeterClient) RelayTrip() error {
	return c.relayCommand(relayCmdTrip)
}

func (c *MeterClient) RelayClose() error {
	return c.relayCommand(relayCmdClose)
}

// relayCommand sends the remote control frame: command selector followed
// by zeroed password and operator fields.
func (c *MeterClient) relayCommand(cmd byte) error {
	defer RecordTimer("RelayCommand", c.instrument)()
	payload := make([]byte, 9)
	payload[0] = cmd
	request := EncodeFrame(Frame{
		Address: c.target(),
		Control: CtrlRelayRequest,
		Payload: payload,
	})
	frame, err := c.session.Exchange(request, CtrlRelayResponse, c.cfg.Timeout)
	if err != nil {
		return err
	}
	c.learnAddress(frame.Address)
	return nil
}

func (c *MeterClient) SetDate(t time.Time) error {
	// wire order: weekday, day, month, two-digit year
	return c.writeRegister(DIDateTime, []byte{
		byteToBCD(int(t.Weekday())),
		byteToBCD(t.Day()),
		byteToBCD(int(t.Month())),
		byteToBCD(t.Year() % 100),
	})
}

func (c *MeterClient) SetTime(t time.Time) error {
	// wire order: second, minute, hour
	return c.writeRegister(DITimeHMS, []byte{
		byteToBCD(t.Second()),
		byteToBCD(t.Minute()),
		byteToBCD(t.Hour()),
	})
}

// writeRegister sends a write-data frame: identifier, zeroed password and
// operator, then the data bytes.
func (c *MeterClient) writeRegister(di DataIdentifier, data []byte) error {
	defer RecordTimer("WriteRegister", c.instrument)()
	payload := readRequestPayload(di)
	payload = append(payload, make([]byte, 8)...)
	payload = append(payload, data...)
	request := EncodeFrame(Frame{
		Address: c.target(),
		Control: CtrlWriteRequest,
		Payload: payload,
	})
	frame, err := c.session.Exchange(request, CtrlWriteResponse, c.cfg.Timeout)
	if err != nil {
		return err
	}
	c.learnAddress(frame.Address)
	return nil
}

func (c *MeterClient) BroadcastTimeSync(t time.Time) error {
	defer RecordTimer("BroadcastTimeSync", c.instrument)()
	request := EncodeFrame(Frame{
		Address: BroadcastAddress,
		Control: CtrlBroadcastSync,
		Payload: []byte{
			byteToBCD(t.Year() % 100),
			byteToBCD(int(t.Month())),
			byteToBCD(t.Day()),
			byteToBCD(t.Hour()),
			byteToBCD(t.Minute()),
		},
	})
	return c.session.Send(request)
}

func (c *MeterClient) maybeCycleBaud(exchangeErr error) {
	if !c.cfg.CycleBaudOnDiscoveryFail {
		return
	}
	switcher, ok := c.transport.(SpeedSwitcher)
	if !ok {
		return
	}
	var te *TimeoutError
	if !errors.As(exchangeErr, &te) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baudIdx = (c.baudIdx + 1) % len(standardBaudRates)
	next := standardBaudRates[c.baudIdx]
	if err := switcher.SetSpeed(next); err != nil {
		c.logger.Warn("could not switch baud rate", zap.Int("baud", next), zap.Error(err))
		return
	}
	c.logger.Info("discovery failed, trying next baud rate", zap.Int("baud", next))
}

func traceMeterInstrumentation(logger *zap.Logger) *MeterInstrument {
	return &MeterInstrument{
		RecordTime: func(fnName string, elapsed time.Duration) {
			logger.Sugar().Debugf("dlt645 [%s]: %d millis", fnName, elapsed.Milliseconds())
		},
	}
}

var _ MeterReader = (*MeterClient)(nil)

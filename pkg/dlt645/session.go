package dlt645

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

func hexBytes(b []byte) string {
	return fmt.Sprintf("% X", b)
}

// SessionState tracks the per-exchange protocol state machine:
// Idle -> Sent -> {Completed, TimedOut, Retrying} -> Idle.
type SessionState int32

const (
	SessionIdle SessionState = iota
	SessionSent
	SessionRetrying
	SessionCompleted
	SessionTimedOut
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionSent:
		return "sent"
	case SessionRetrying:
		return "retrying"
	case SessionCompleted:
		return "completed"
	case SessionTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

type SessionConfig struct {
	// MaxRetries is the total send attempt budget per exchange.
	MaxRetries int
	// ByteGap is the silence that closes a response.
	ByteGap time.Duration
	// RxBufferSize caps the accumulated response.
	RxBufferSize int
}

// idleSleep paces the receive poll loop when the transport reports
// nothing, so instant transports do not spin.
const idleSleep = time.Millisecond

// Session owns the request/response exchange discipline of the single
// half-duplex line. All access to the transport funnels through it; the
// mutex is what keeps exactly one exchange outstanding.
type Session struct {
	transport Transport
	cfg       SessionConfig
	logger    *zap.Logger

	mu    sync.Mutex
	state atomic.Int32
}

// exchange is the transient state of one request/response cycle. It dies
// with the exchange; nothing of it is observable afterwards.
type exchange struct {
	request  []byte
	sentAt   time.Time
	rx       []byte
	attempts int
}

func NewSession(transport Transport, cfg SessionConfig, logger *zap.Logger) *Session {
	return &Session{transport: transport, cfg: cfg, logger: logger}
}

// State reports the current machine state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(state SessionState) {
	s.state.Store(int32(state))
}

// Exchange sends request and waits for a response with control code
// expect, retrying up to the configured budget. The terminal failure is
// always a TimeoutError wrapping the last per-attempt error.
func (s *Session) Exchange(request []byte, expect byte, timeout time.Duration) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex := &exchange{request: request}
	var lastErr error
	for ex.attempts < s.cfg.MaxRetries {
		frame, err := s.attempt(ex, expect, timeout)
		if err == nil {
			s.setState(SessionCompleted)
			s.setState(SessionIdle)
			return frame, nil
		}
		lastErr = err
		s.logger.Debug("exchange attempt failed",
			zap.Int("attempt", ex.attempts),
			zap.Int("budget", s.cfg.MaxRetries),
			zap.Error(err))
		if ex.attempts < s.cfg.MaxRetries {
			s.setState(SessionRetrying)
		}
	}
	s.setState(SessionTimedOut)
	s.setState(SessionIdle)
	return nil, &TimeoutError{Attempts: ex.attempts, Cause: lastErr}
}

// Send transmits a frame that expects no response (broadcast). It takes
// the line mutex so a broadcast never interleaves with an exchange, but
// no exchange state is created.
func (s *Session) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transport.Flush(); err != nil {
		return err
	}
	s.logger.Debug("send frame", zap.Int("len", len(frame)), zap.String("tx", hexBytes(frame)))
	return s.transport.Write(frame)
}

func (s *Session) attempt(ex *exchange, expect byte, timeout time.Duration) (*Frame, error) {
	if err := s.transport.Flush(); err != nil {
		return nil, err
	}
	ex.rx = ex.rx[:0]
	ex.attempts++
	s.logger.Debug("send request",
		zap.Int("attempt", ex.attempts),
		zap.Duration("timeout", timeout),
		zap.String("tx", hexBytes(ex.request)))
	if err := s.transport.Write(ex.request); err != nil {
		return nil, err
	}
	ex.sentAt = time.Now()
	s.setState(SessionSent)

	buf := make([]byte, s.cfg.RxBufferSize)
	deadline := ex.sentAt.Add(timeout)
	var lastRx time.Time
	for {
		n, err := s.transport.ReadAvailable(buf)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		if n > 0 {
			ex.rx = append(ex.rx, buf[:n]...)
			if len(ex.rx) > s.cfg.RxBufferSize {
				return nil, frameErrorf(LengthMismatch, "receive overflow at %d bytes", len(ex.rx))
			}
			lastRx = now
			continue
		}
		if !lastRx.IsZero() {
			// a gap of silence closes the response
			if now.Sub(lastRx) >= s.cfg.ByteGap {
				break
			}
		} else if now.After(deadline) {
			return nil, errNoResponse
		}
		time.Sleep(idleSleep)
	}

	s.logger.Debug("receive complete", zap.Int("len", len(ex.rx)), zap.String("rx", hexBytes(ex.rx)))
	frame, err := DecodeFrame(ex.rx)
	if err != nil {
		return nil, err
	}
	if frame.Control != expect {
		return nil, &ResponseError{Control: frame.Control, Expected: expect}
	}
	return frame, nil
}

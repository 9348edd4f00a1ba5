package dlt645

import (
	"errors"
	"fmt"
)

// FrameErrorKind classifies structural decode failures. Decode is
// all-or-nothing: a frame that fails any check yields no partial result.
type FrameErrorKind int

const (
	BadMarker FrameErrorKind = iota
	BadChecksum
	LengthMismatch
)

func (k FrameErrorKind) String() string {
	switch k {
	case BadMarker:
		return "bad marker"
	case BadChecksum:
		return "bad checksum"
	case LengthMismatch:
		return "length mismatch"
	default:
		return "unknown"
	}
}

type FrameError struct {
	Kind   FrameErrorKind
	Detail string
}

func (e *FrameError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("frame error: %s", e.Kind)
	}
	return fmt.Sprintf("frame error: %s: %s", e.Kind, e.Detail)
}

func frameErrorf(kind FrameErrorKind, format string, args ...any) *FrameError {
	return &FrameError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsFrameError reports whether err is, or wraps, a FrameError of the
// given kind.
func IsFrameError(err error, kind FrameErrorKind) bool {
	var fe *FrameError
	return errors.As(err, &fe) && fe.Kind == kind
}

// TimeoutError is the terminal outcome of an exchange whose retry budget
// ran out. Cause holds the last per-attempt failure, which may be a
// FrameError or a ResponseError rather than a true silence.
type TimeoutError struct {
	Attempts int
	Cause    error
}

func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("exchange failed after %d attempts: %s", e.Attempts, e.Cause)
	}
	return fmt.Sprintf("exchange timed out after %d attempts", e.Attempts)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ResponseError is a syntactically valid response whose control code
// reports failure (0xD1/0xB1 family) or does not match the request.
type ResponseError struct {
	Control  byte
	Expected byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("unexpected response control code 0x%02X (want 0x%02X)", e.Control, e.Expected)
}

// UnsupportedDIError marks a valid response carrying a data identifier
// the registry does not know. Logged by callers, never fatal.
type UnsupportedDIError struct {
	DI DataIdentifier
}

func (e *UnsupportedDIError) Error() string {
	return fmt.Sprintf("unsupported data identifier 0x%08X", uint32(e.DI))
}

// errNoResponse marks an attempt that saw no bytes at all before the
// window closed.
var errNoResponse = fmt.Errorf("no response within timeout")

package domain

import "fmt"

// MeterControlRequest

type MeterControlRequest interface {
	ActorRequest
	MeterControlCommand() string
}

type MeterControlRequestMixIn struct {
	ActorRequestMixIn
}

func (r MeterControlRequestMixIn) MeterControlCommand() string {
	return fmt.Sprintf("%T", r)
}

// MeterControlResponse

type MeterControlResponse interface {
	ActorResponse
	MeterControlResponse() string
}

type MeterControlResponseMixIn struct {
	ActorResponse
}

func (r MeterControlResponseMixIn) MeterControlResponse() string {
	return fmt.Sprintf("%T", r)
}

// MeterControl commands

type RelayControlRequest struct {
	MeterControlRequestMixIn
	Connect bool
}

type RelayControlResponse struct {
	MeterControlResponseMixIn
}

type ClockSyncScope uint8

const (
	CLOCK_SYNC_DATE ClockSyncScope = iota
	CLOCK_SYNC_TIME
	CLOCK_SYNC_BROADCAST
)

func (s ClockSyncScope) String() string {
	switch s {
	case CLOCK_SYNC_DATE:
		return "date"
	case CLOCK_SYNC_TIME:
		return "time"
	case CLOCK_SYNC_BROADCAST:
		return "broadcast"
	default:
		return "unknown"
	}
}

type SyncClockRequest struct {
	MeterControlRequestMixIn
	Scope ClockSyncScope
}

type SyncClockResponse struct {
	MeterControlResponseMixIn
	Scope ClockSyncScope
}

// ensure interface compliance
var _ MeterControlRequest = (*RelayControlRequest)(nil)

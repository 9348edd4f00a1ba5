package actor

import (
	"fmt"
	"time"

	"github.com/hargall/dlt645mqtt/internal/core/domain"
	"github.com/hargall/dlt645mqtt/internal/core/port"
	"github.com/hargall/dlt645mqtt/internal/util/actorutil"
	"github.com/hargall/dlt645mqtt/pkg/dlt645"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

// MeterActor owns the serial engine. Every exchange runs as a background
// task while the actor stashes incoming work, so bus exchanges never
// interleave.
type MeterActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	reader   dlt645.MeterReader
	clock    port.Clock
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewMeterActor(reader dlt645.MeterReader, clock port.Clock, logger *zap.Logger) *MeterActor {
	act := &MeterActor{
		reader:   reader,
		clock:    clock,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_METER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MeterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MeterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("meter@starting started")
		err := state.reader.Open()
		if err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.reader.Close()
	default:
		state.logger.Debug("meter@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MeterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("meter@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_METER,
			Healthy: true,
			State:   "idle",
		})
	case domain.DiscoverMeterRequest:
		state.logger.Debug("meter@default: DiscoverMeterRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.discoverMeter),
			mapTaskResult[domain.DiscoverMeterResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.DiscoverMeterResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(8 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingMeter)
	case domain.ReadMeasurementRequest:
		state.logger.Debug("meter@default: ReadMeasurementRequest", zap.String("di", msg.DI.String()))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.ReadMeasurementResponse, error) {
			return state.readMeasurement(msg.DI)
		}), mapTaskResult[domain.ReadMeasurementResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ReadMeasurementResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(5 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingMeter)
	case domain.RelayControlRequest:
		state.logger.Sugar().Debugf("meter@default: RelayControlRequest connect=%t", msg.Connect)
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.RelayControlResponse {
			a := state.relayControl(msg.Connect)
			return &a
		}), mapTaskResult[domain.RelayControlResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.RelayControlResponse{
					MeterControlResponseMixIn: meterControlError(err),
				},
				replyTo: sender,
			}
		}).WithTimeout(5 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingMeter)
	case domain.SyncClockRequest:
		state.logger.Sugar().Debugf("meter@default: SyncClockRequest scope=%s", msg.Scope)
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.SyncClockResponse {
			a := state.syncClock(msg.Scope)
			return &a
		}), mapTaskResult[domain.SyncClockResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SyncClockResponse{
					MeterControlResponseMixIn: meterControlError(err),
					Scope:                     msg.Scope,
				},
				replyTo: sender,
			}
		}).WithTimeout(5 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingMeter)
	case *actor.Stopping:
		state.reader.Close()
	default:
		state.logger.Debug("meter@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MeterActor) WaitingMeter(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("meter@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.reader.Close()
	default:
		state.logger.Debug("meter@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *MeterActor) discoverMeter() (*domain.DiscoverMeterResponse, error) {
	address, err := a.reader.Discover()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.DiscoverMeterResponse{
		Address: address.String(),
	}, nil
}

func (a *MeterActor) readMeasurement(di dlt645.DataIdentifier) (*domain.ReadMeasurementResponse, error) {
	value, err := a.reader.ReadMeasurement(di)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.ReadMeasurementResponse{
		Value: value,
	}, nil
}

func (a *MeterActor) relayControl(connect bool) domain.RelayControlResponse {
	var err error
	if connect {
		err = a.reader.RelayClose()
	} else {
		err = a.reader.RelayTrip()
	}
	if err != nil {
		logger.Error(err)
	}
	return domain.RelayControlResponse{
		MeterControlResponseMixIn: meterControlError(err),
	}
}

func (a *MeterActor) syncClock(scope domain.ClockSyncScope) domain.SyncClockResponse {
	now := a.clock.Now()
	var err error
	switch scope {
	case domain.CLOCK_SYNC_DATE:
		err = a.reader.SetDate(now)
	case domain.CLOCK_SYNC_TIME:
		err = a.reader.SetTime(now)
	case domain.CLOCK_SYNC_BROADCAST:
		err = a.reader.BroadcastTimeSync(now)
	default:
		err = fmt.Errorf("unknown clock sync scope %d", scope)
	}
	if err != nil {
		logger.Error(err)
	}
	return domain.SyncClockResponse{
		MeterControlResponseMixIn: meterControlError(err),
		Scope:                     scope,
	}
}

// meterControlError carries err (possibly nil) as the response status.
func meterControlError(err error) domain.MeterControlResponseMixIn {
	return domain.MeterControlResponseMixIn{
		ActorResponse: domain.ActorResponseMixIn{
			ResponseError: err,
		},
	}
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}

package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/hargall/dlt645mqtt/internal/config"
	"github.com/hargall/dlt645mqtt/internal/core/domain"
	"github.com/hargall/dlt645mqtt/internal/core/events"
	"github.com/hargall/dlt645mqtt/internal/core/port"
	. "github.com/hargall/dlt645mqtt/internal/util/actorutil"
	"github.com/hargall/dlt645mqtt/pkg/dlt645"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	MAX_CONSECUTIVE_READ_FAILURES = 5
)

type PollerActor struct {
	ActorWithStates
	scheduler    *scheduler.TimerScheduler
	stash        *Stash
	meterActor   *actor.PID
	config       *config.Config
	eventStream  *eventstream.EventStream
	rotation     port.PollRotation
	reverse      dlt645.ReversePowerEdge
	readFailures uint

	logger *zap.Logger
}

type pollTick struct {
}

func NewPollerActor(config *config.Config, meterActor *actor.PID, eventStream *eventstream.EventStream,
	rotation port.PollRotation, logger *zap.Logger) *PollerActor {
	act := &PollerActor{
		config:      config,
		meterActor:  meterActor,
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_POLLER, logger),
		eventStream: eventStream,
		rotation:    rotation,
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(PollerStartingState{
		actor: act,
	})
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func (state *PollerActor) pollInterval() time.Duration {
	return time.Duration(state.config.Poll.IntervalMillis) * time.Millisecond
}

func (state *PollerActor) requestDiscovery(ctx actor.Context) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.meterActor, domain.DiscoverMeterRequest{}, 10*time.Second),
		func(err error) any {
			return domain.DiscoverMeterResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
}

// Starting state

type PollerStartingState struct {
	ActorState
	actor *PollerActor
}

func (state PollerStartingState) Name() string {
	return "starting"
}

func (state PollerStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("poller@starting started")

		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)

		state.actor.requestDiscovery(ctx)
		state.actor.Become(PollerDiscoveringState{
			actor: state.actor,
		})
	case *actor.Restarting:
	default:
		state.actor.logger.Debug("poller@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Discovering state
// Register polling must not start before the meter address is learned, so
// discovery is retried on the poll cadence until a meter answers.

type PollerDiscoveringState struct {
	ActorState
	actor *PollerActor
}

func (state PollerDiscoveringState) Name() string {
	return "discovering"
}

func (state PollerDiscoveringState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("poller@discovering: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   state.Name(),
		})
	case pollTick:
		state.actor.logger.Debug("poller@discovering tick")
		state.actor.requestDiscovery(ctx)
	case domain.DiscoverMeterResponse:
		if msg.HasResponseError() {
			state.actor.logger.Warn("poller@discovering discovery failed", zap.Error(msg.GetResponseError()))
			state.actor.scheduler.RequestOnce(state.actor.pollInterval(), ctx.Self(), pollTick{})
			state.actor.stash.UnstashAll(ctx)
			return
		}
		state.actor.logger.Info("poller@discovering meter found", zap.String("address", msg.Address))
		state.actor.eventStream.Publish(events.MeterAddressUpdateEvent(msg.Address))
		state.actor.rotation.Reset()
		state.actor.scheduler.RequestOnce(state.actor.pollInterval(), ctx.Self(), pollTick{})
		state.actor.Become(PollerPollingState{
			actor: state.actor,
		})
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("poller@discovering: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Polling state

type PollerPollingState struct {
	ActorState
	actor *PollerActor
}

func (state PollerPollingState) Name() string {
	return "polling"
}

func (state PollerPollingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("poller@polling: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   state.Name(),
		})
	case pollTick:
		state.actor.logger.Debug("poller@polling tick")
		di := state.actor.rotation.Next()
		// schedule next tick
		state.actor.scheduler.RequestOnce(state.actor.pollInterval(), ctx.Self(), pollTick{})
		state.actor.BecomeStacked(PollerAwaitReadState{
			actor: state.actor,
		}.OnEnterAction(ctx, di))
	case domain.ReadMeasurementResponse:
		if msg.HasResponseError() {
			state.actor.readFailures++
			state.actor.logger.Error("poller@polling read failed",
				zap.Uint("consecutive", state.actor.readFailures), zap.Error(msg.GetResponseError()))
			if state.actor.readFailures >= MAX_CONSECUTIVE_READ_FAILURES {
				// let the supervisor restart the poll loop from discovery
				panic(msg.GetResponseError())
			}
			return
		}
		state.actor.readFailures = 0
		evs := events.MeterValueToUpdateEvents(msg.Value)
		for _, ev := range evs {
			state.actor.eventStream.Publish(ev)
		}
		if msg.Value != nil && msg.Value.DI == dlt645.DIActivePowerTotal {
			if state.actor.reverse.Observe(msg.Value.Float) {
				state.actor.logger.Warn("poller@polling reverse power flow detected",
					zap.Float64("watt", msg.Value.Float))
			}
			state.actor.eventStream.Publish(events.ReversePowerUpdateEvent(msg.Value.Float < 0))
		}
	default:
		state.actor.logger.Debug("poller@polling: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Await read response state

type PollerAwaitReadState struct {
	ActorState
	actor *PollerActor
}

func (state PollerAwaitReadState) Name() string {
	return "awaitReadReceive"
}

func (state PollerAwaitReadState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ReadMeasurementResponse:
		ctx.SetReceiveTimeout(0)
		ctx.RequestWithCustomSender(ctx.Self(), msg, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("poller@awaitReadReceive: ReceiveTimeout")
		ctx.RequestWithCustomSender(ctx.Self(), domain.ReadMeasurementResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: errors.New("receive timeout"),
			},
		}, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("poller@awaitReadReceive: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state PollerAwaitReadState) OnEnterAction(ctx actor.Context, di dlt645.DataIdentifier) PollerAwaitReadState {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.meterActor,
		domain.ReadMeasurementRequest{DI: di}, 6*time.Second),
		func(err error) any {
			return domain.ReadMeasurementResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	ctx.SetReceiveTimeout(6 * time.Second)
	return state
}

package actor

import (
	"testing"
	"time"

	"github.com/hargall/dlt645mqtt/internal/core/domain"
	"github.com/hargall/dlt645mqtt/internal/core/port"
	"github.com/hargall/dlt645mqtt/internal/util/actorutil"
	"github.com/hargall/dlt645mqtt/pkg/dlt645"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func spawnTestMeterActor(t *testing.T) (*actor.ActorSystem, *actor.RootContext, *actor.PID) {
	logger := zap.Must(zap.NewDevelopment())

	reader, err := dlt645.CreateSimulatedMeterReader(dlt645.MeterClientConfig{}, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMeterActor(reader, port.SystemClock{}, logger)
	})
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	return as, context, pid
}

func TestDiscoverMeterActor(t *testing.T) {

	assert := assert.New(t)

	as, context, pid := spawnTestMeterActor(t)

	msg := domain.DiscoverMeterRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.DiscoverMeterResponse)

	assert.False(resp.HasResponseError(), "discovery error")
	assert.Equal("000123456789", resp.Address, "meter address")

	context.Stop(pid)

	as.Shutdown()
}

func TestReadMeasurementMeterActor(t *testing.T) {

	assert := assert.New(t)

	as, context, pid := spawnTestMeterActor(t)

	msg := domain.ReadMeasurementRequest{DI: dlt645.DIVoltagePhaseA}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.ReadMeasurementResponse)

	assert.False(resp.HasResponseError(), "read error")
	assert.InDelta(229.8, resp.Value.Float, 0.001, "voltage value")
	assert.Equal("V", resp.Value.Unit, "voltage unit")
	assert.Equal(1, resp.Value.Decimals, "voltage decimals")

	msg = domain.ReadMeasurementRequest{DI: dlt645.DIActivePowerTotal}
	result, err = context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp = result.(domain.ReadMeasurementResponse)

	assert.False(resp.HasResponseError(), "read error")
	assert.Equal("W", resp.Value.Unit, "power unit")
	assert.Equal(1, resp.Value.Decimals, "power decimals")

	context.Stop(pid)

	as.Shutdown()
}

func TestMeterActorControlCommands(t *testing.T) {

	assert := assert.New(t)

	as, context, pid := spawnTestMeterActor(t)

	result, err := context.RequestFuture(pid, domain.RelayControlRequest{Connect: false}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	relayResp := result.(domain.RelayControlResponse)
	assert.False(relayResp.HasResponseError(), "relay trip error")

	result, err = context.RequestFuture(pid, domain.RelayControlRequest{Connect: true}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	relayResp = result.(domain.RelayControlResponse)
	assert.False(relayResp.HasResponseError(), "relay close error")

	result, err = context.RequestFuture(pid, domain.SyncClockRequest{Scope: domain.CLOCK_SYNC_DATE}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	clockResp := result.(domain.SyncClockResponse)
	assert.False(clockResp.HasResponseError(), "set date error")
	assert.Equal(domain.CLOCK_SYNC_DATE, clockResp.Scope, "sync scope")

	result, err = context.RequestFuture(pid, domain.SyncClockRequest{Scope: domain.CLOCK_SYNC_BROADCAST}, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	clockResp = result.(domain.SyncClockResponse)
	assert.False(clockResp.HasResponseError(), "broadcast sync error")

	context.Stop(pid)

	as.Shutdown()
}

func TestMeterActorHealth(t *testing.T) {

	assert := assert.New(t)

	as, context, pid := spawnTestMeterActor(t)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.ActorHealthResponse)

	assert.Equal(domain.ACTOR_ID_METER, resp.Id, "actor id")
	assert.True(resp.Healthy, "healthy")

	context.Stop(pid)

	as.Shutdown()
}

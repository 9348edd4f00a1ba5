package actor

import (
	"sync"
	"testing"
	"time"

	adactor "github.com/hargall/dlt645mqtt/internal/adapter/actor"
	"github.com/hargall/dlt645mqtt/internal/core/domain"
	"github.com/hargall/dlt645mqtt/internal/core/port"
	"github.com/hargall/dlt645mqtt/internal/core/service"
	"github.com/hargall/dlt645mqtt/internal/util"
	"github.com/hargall/dlt645mqtt/internal/util/actorutil"
	"github.com/hargall/dlt645mqtt/pkg/dlt645"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []any
}

func (r *eventRecorder) record(ev any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) snapshot() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any{}, r.events...)
}

func TestPollerActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.Poll.IntervalMillis = 1000
	cfg.Poll.PowerPollWeight = 2

	logger := zap.Must(zap.NewDevelopment())

	reader, err := dlt645.CreateSimulatedMeterReader(dlt645.MeterClientConfig{}, logger, nil)
	if err != nil {
		t.Error(err)
		return
	}

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	meterProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewMeterActor(reader, port.SystemClock{}, logger)
	})
	meterPid := context.Spawn(meterProps)

	es := &eventstream.EventStream{}
	recorder := &eventRecorder{}
	sub := es.Subscribe(func(value any) {
		recorder.record(value)
	})
	defer es.Unsubscribe(sub)

	rotation := service.NewMeterPollRotation(cfg.Poll.PowerPollWeight)

	pollerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, meterPid, es, rotation, logger)
	})
	pollerPid := context.Spawn(pollerProps)

	// discovery runs right away, then reads tick at the poll interval
	time.Sleep(3500 * time.Millisecond)

	res, err := context.RequestFuture(pollerPid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(ok)
	assert.True(healthResp.Healthy, "healthy is true")
	assert.Equal("polling", healthResp.State, "meter was discovered")

	events := recorder.snapshot()

	var addressSeen bool
	var powerEvents, reverseEvents int
	for _, ev := range events {
		switch e := ev.(type) {
		case domain.TextSensorUpdateEvent:
			if e.Id == domain.SENSOR_ID_METER_ADDRESS {
				addressSeen = true
				assert.Equal("000123456789", e.Value, "discovered address")
			}
		case domain.FloatSensorUpdateEvent:
			if e.Id == domain.SENSOR_ID_METER_ACTIVE_POWER {
				powerEvents++
			}
		case domain.BinarySensorUpdateEvent:
			if e.Id == domain.BINARY_SENSOR_ID_REVERSE_POWER {
				reverseEvents++
			}
		}
	}

	assert.True(addressSeen, "address update published on discovery")
	assert.True(powerEvents >= 2, "power reads dominate the rotation")
	assert.Equal(powerEvents, reverseEvents, "every power read refreshes the reverse power sensor")

	context.Stop(pollerPid)
	context.Stop(meterPid)

	as.Shutdown()
}

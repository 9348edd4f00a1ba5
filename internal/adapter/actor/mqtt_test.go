package actor

import (
	"testing"
	"time"

	"github.com/hargall/dlt645mqtt/internal/core/domain"
	"github.com/hargall/dlt645mqtt/internal/util"
	"github.com/hargall/dlt645mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, logger) })
	pid := context.Spawn(props)

	time.Sleep(2 * time.Second)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(ok)
	assert.Equal(domain.ACTOR_ID_MQTT, resp.Id)

	update := domain.PublishSensorUpdateRequest{
		ActorRequestMixIn: domain.ActorRequestMixIn{
			ReplyToRef: (*domain.ActorRef)(pid),
		},
		Event: domain.FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: domain.SENSOR_ID_METER_ACTIVE_POWER,
			},
			Value:    245,
			Decimals: 1,
		},
	}
	result, err = context.RequestFuture(pid, update, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	updateResp, ok := result.(domain.PublishSensorUpdateResponse)
	assert.True(ok)
	assert.False(updateResp.HasResponseError())

	publish := domain.PublishMessageRequest{
		ActorRequestMixIn: domain.ActorRequestMixIn{
			ReplyToRef: (*domain.ActorRef)(pid),
		},
		Topic:   "dlt645mqtt/sensor/meter_active_power/state",
		Payload: "245.0",
	}
	result, err = context.RequestFuture(pid, publish, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	publishResp, ok := result.(domain.PublishMessageResponse)
	assert.True(ok)
	assert.False(publishResp.HasResponseError())

	context.Stop(pid)

	time.Sleep(1 * time.Second)

	as.Shutdown()
}

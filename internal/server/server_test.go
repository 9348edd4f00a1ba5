package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	adactor "github.com/hargall/dlt645mqtt/internal/adapter/actor"
	coreactor "github.com/hargall/dlt645mqtt/internal/core/actor"
	"github.com/hargall/dlt645mqtt/internal/core/domain"
	"github.com/hargall/dlt645mqtt/internal/core/port"
	"github.com/hargall/dlt645mqtt/internal/util"
	"github.com/hargall/dlt645mqtt/pkg/dlt645"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestServerRoutes(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	reader, err := dlt645.CreateSimulatedMeterReader(dlt645.MeterClientConfig{}, logger, nil)
	if err != nil {
		t.Error(err)
		return
	}

	as := actor.NewActorSystem()
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return coreactor.NewMasterOfPuppetsActor(cfg, func() *adactor.MeterActor {
			return adactor.NewMeterActor(reader, port.SystemClock{}, logger)
		}, func() *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	srv := &Server{
		port:        cfg.Port,
		httpLog:     cfg.HttpLog,
		rootContext: context,
		masterActor: pid,
	}
	handler := srv.RegisterRoutes()

	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/relay/trip", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"success": true}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/relay/close", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"success": true}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/clock/date", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"success": true}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/clock/broadcast", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"success": true}`, rec.Body.String())

	context.Stop(pid)

	as.Shutdown()
}

package domain

import "github.com/hargall/dlt645mqtt/pkg/dlt645"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_METER        = "meter"
	ACTOR_ID_POLLER       = "poller"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type DiscoverMeterRequest struct {
	ActorRequestMixIn
}

type DiscoverMeterResponse struct {
	ActorResponseMixIn
	Address string
}

type ReadMeasurementRequest struct {
	ActorRequestMixIn
	DI dlt645.DataIdentifier
}

type ReadMeasurementResponse struct {
	ActorResponseMixIn
	Value *dlt645.MeterValue
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors       []GenericSensor
	BinarySensors []GenericBinarySensor
	Buttons       []GenericButton
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

package events

import (
	. "github.com/hargall/dlt645mqtt/internal/core/domain"

	"github.com/hargall/dlt645mqtt/pkg/dlt645"
)

var floatSensorIds = map[dlt645.DataIdentifier]string{
	dlt645.DIActivePowerTotal:   SENSOR_ID_METER_ACTIVE_POWER,
	dlt645.DIEnergyActiveTotal:  SENSOR_ID_METER_ENERGY_FORWARD,
	dlt645.DIEnergyReverseTotal: SENSOR_ID_METER_ENERGY_REVERSE,
	dlt645.DIVoltagePhaseA:      SENSOR_ID_METER_VOLTAGE,
	dlt645.DICurrentPhaseA:      SENSOR_ID_METER_CURRENT,
	dlt645.DIPowerFactorTotal:   SENSOR_ID_METER_POWER_FACTOR,
	dlt645.DIFrequency:          SENSOR_ID_METER_FREQUENCY,
}

// MeterValueToUpdateEvents maps one decoded register to its sensor
// update event. Registers without a sensor produce no events.
func MeterValueToUpdateEvents(value *dlt645.MeterValue) []any {
	var events []any
	if value == nil {
		return events
	}

	switch value.Kind {
	case dlt645.KindFloat:
		if id, ok := floatSensorIds[value.DI]; ok {
			events = append(events, FloatSensorUpdateEvent{
				SensorUpdateEventMixIn: SensorUpdateEventMixIn{
					Id: id,
				},
				Value:    value.Float,
				Decimals: uint(value.Decimals),
			})
		}
	case dlt645.KindDate:
		events = append(events, TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_METER_DATE,
			},
			Value: value.Date.String(),
		})
	case dlt645.KindTime:
		events = append(events, TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_METER_TIME,
			},
			Value: value.Time.String(),
		})
	case dlt645.KindAddress:
		events = append(events, MeterAddressUpdateEvent(value.Address.String()))
	}

	return events
}

func ReversePowerUpdateEvent(active bool) any {
	return BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: BINARY_SENSOR_ID_REVERSE_POWER,
		},
		Value: active,
	}
}

func MeterAddressUpdateEvent(address string) any {
	return TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_METER_ADDRESS,
		},
		Value: address,
	}
}

package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE         = "bridge"
	SENSOR_ID_METER_ACTIVE_POWER   = "meter_active_power"
	SENSOR_ID_METER_ENERGY_FORWARD = "meter_energy_forward"
	SENSOR_ID_METER_ENERGY_REVERSE = "meter_energy_reverse"
	SENSOR_ID_METER_VOLTAGE        = "meter_voltage"
	SENSOR_ID_METER_CURRENT        = "meter_current"
	SENSOR_ID_METER_POWER_FACTOR   = "meter_power_factor"
	SENSOR_ID_METER_FREQUENCY      = "meter_frequency"
	SENSOR_ID_METER_DATE           = "meter_date"
	SENSOR_ID_METER_TIME           = "meter_time"
	SENSOR_ID_METER_ADDRESS        = "meter_address"
	BINARY_SENSOR_ID_REVERSE_POWER = "meter_reverse_power"
	BUTTON_ID_RELAY_TRIP           = "relay_trip"
	BUTTON_ID_RELAY_CLOSE          = "relay_close"
	BUTTON_ID_SET_DATE             = "set_date"
	BUTTON_ID_SET_TIME             = "set_time"
	BUTTON_ID_TIME_BROADCAST       = "time_broadcast"
	STATE_CLASS_MEASUREMENT        = "measurement"
	STATE_CLASS_TOTAL_INCREASING   = "total_increasing"
	DEVICE_CLASS_CURRENT           = "current"
	DEVICE_CLASS_ENERGY            = "energy"
	DEVICE_CLASS_FREQUENCY         = "frequency"
	DEVICE_CLASS_POWER             = "power"
	DEVICE_CLASS_POWER_FACTOR      = "power_factor"
	DEVICE_CLASS_VOLTAGE           = "voltage"
	DEVICE_CLASS_CONNECTIVITY      = "connectivity"
	DEVICE_CLASS_PROBLEM           = "problem"
	ENTITY_CLASS_DIAGNOSTIC        = "diagnostic"
	ENTITY_CLASS_CONFIG            = "config"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("dlt645mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "hargall",
		Model:        "DLT645MQTT",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("DLT645MQTT %s", md5HashShort(baseTopic)),
	}
}

func MeterDevice(address string) Device {
	return Device{
		Id:    fmt.Sprintf("dlt_meter_%s", md5HashShort(address)),
		Model: "DL/T 645-2007",
		Name:  fmt.Sprintf("Meter %s", address),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func MeterSensors(meterDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Active Power
	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                SENSOR_ID_METER_ACTIVE_POWER,
		Name:              "Active power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_METER_ACTIVE_POWER),
	})

	// Forward Active Energy
	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                SENSOR_ID_METER_ENERGY_FORWARD,
		Name:              "Forward active energy",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_METER_ENERGY_FORWARD),
	})

	// Reverse Active Energy
	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                SENSOR_ID_METER_ENERGY_REVERSE,
		Name:              "Reverse active energy",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_METER_ENERGY_REVERSE),
	})

	// Phase Voltage
	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                SENSOR_ID_METER_VOLTAGE,
		Name:              "Voltage",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_METER_VOLTAGE),
	})

	// Phase Current
	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                SENSOR_ID_METER_CURRENT,
		Name:              "Current",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_METER_CURRENT),
	})

	// Power Factor
	sensors = append(sensors, GenericSensor{
		Device:      meterDevice,
		Id:          SENSOR_ID_METER_POWER_FACTOR,
		Name:        "Power factor",
		StateClass:  STATE_CLASS_MEASUREMENT,
		DeviceClass: DEVICE_CLASS_POWER_FACTOR,
		UniqueId:    uniqueId(meterDevice.Id, SENSOR_ID_METER_POWER_FACTOR),
	})

	// Grid Frequency
	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                SENSOR_ID_METER_FREQUENCY,
		Name:              "Grid frequency",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_FREQUENCY,
		UnitOfMeasurement: "Hz",
		Icon:              "mdi:sine-wave",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(meterDevice.Id, SENSOR_ID_METER_FREQUENCY),
	})

	// Meter Date
	sensors = append(sensors, GenericSensor{
		Device:         meterDevice,
		Id:             SENSOR_ID_METER_DATE,
		Name:           "Meter date",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:calendar",
		UniqueId:       uniqueId(meterDevice.Id, SENSOR_ID_METER_DATE),
	})

	// Meter Time
	sensors = append(sensors, GenericSensor{
		Device:         meterDevice,
		Id:             SENSOR_ID_METER_TIME,
		Name:           "Meter time",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:clock-outline",
		UniqueId:       uniqueId(meterDevice.Id, SENSOR_ID_METER_TIME),
	})

	// Meter Address
	sensors = append(sensors, GenericSensor{
		Device:         meterDevice,
		Id:             SENSOR_ID_METER_ADDRESS,
		Name:           "Meter address",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:identifier",
		UniqueId:       uniqueId(meterDevice.Id, SENSOR_ID_METER_ADDRESS),
	})

	return sensors
}

func MeterBinarySensors(meterDevice Device) []GenericBinarySensor {

	var sensors []GenericBinarySensor

	// Reverse power flow
	sensors = append(sensors, GenericBinarySensor{
		Device:      meterDevice,
		Id:          BINARY_SENSOR_ID_REVERSE_POWER,
		Name:        "Reverse power flow",
		DeviceClass: DEVICE_CLASS_PROBLEM,
		UniqueId:    uniqueId(meterDevice.Id, BINARY_SENSOR_ID_REVERSE_POWER),
	})

	return sensors
}

func MeterButtons(meterDevice Device) []GenericButton {

	var buttons []GenericButton

	// Relay trip
	buttons = append(buttons, GenericButton{
		Device:   meterDevice,
		Id:       BUTTON_ID_RELAY_TRIP,
		Name:     "Relay trip",
		UniqueId: uniqueId(meterDevice.Id, BUTTON_ID_RELAY_TRIP),
		Icon:     "mdi:electric-switch",
	})
	// Relay close
	buttons = append(buttons, GenericButton{
		Device:   meterDevice,
		Id:       BUTTON_ID_RELAY_CLOSE,
		Name:     "Relay close",
		UniqueId: uniqueId(meterDevice.Id, BUTTON_ID_RELAY_CLOSE),
		Icon:     "mdi:electric-switch-closed",
	})
	// Write date to meter
	buttons = append(buttons, GenericButton{
		Device:         meterDevice,
		Id:             BUTTON_ID_SET_DATE,
		Name:           "Sync meter date",
		UniqueId:       uniqueId(meterDevice.Id, BUTTON_ID_SET_DATE),
		EntityCategory: ENTITY_CLASS_CONFIG,
		Icon:           "mdi:calendar-sync",
	})
	// Write time to meter
	buttons = append(buttons, GenericButton{
		Device:         meterDevice,
		Id:             BUTTON_ID_SET_TIME,
		Name:           "Sync meter time",
		UniqueId:       uniqueId(meterDevice.Id, BUTTON_ID_SET_TIME),
		EntityCategory: ENTITY_CLASS_CONFIG,
		Icon:           "mdi:clock-edit-outline",
	})
	// Broadcast time sync
	buttons = append(buttons, GenericButton{
		Device:         meterDevice,
		Id:             BUTTON_ID_TIME_BROADCAST,
		Name:           "Broadcast time sync",
		UniqueId:       uniqueId(meterDevice.Id, BUTTON_ID_TIME_BROADCAST),
		EntityCategory: ENTITY_CLASS_CONFIG,
		Icon:           "mdi:broadcast",
	})

	return buttons
}

func BridgeSensors(bridgeDevice Device) []GenericBinarySensor {

	var sensors []GenericBinarySensor

	// Bridge connection state
	sensors = append(sensors, GenericBinarySensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}

package util

import (
	"github.com/hargall/dlt645mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Serial: config.SerialConfig{
			Device:       "/dev/null",
			BaudRate:     2400,
			RxBufferSize: 256,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "dlt645mqtt",
			HADiscoveryTopic: "homeassistant",
		},
		Poll: config.PollConfig{
			IntervalMillis:  5000,
			PowerPollWeight: 10,
		},
		PowerRatio: 1,
		Simulate:   true,
		Port:       8080,
	}
}

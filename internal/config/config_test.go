package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Serial: SerialConfig{
			Device:       "/dev/ttyUSB0",
			BaudRate:     2400,
			RxBufferSize: 256,
		},
		Poll: PollConfig{
			IntervalMillis:  5000,
			PowerPollWeight: 10,
		},
		PowerRatio: 10,
		Port:       8080,
	}
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	cfg := validConfig()
	assert.NoError(Validate(&cfg))

	cfg = validConfig()
	cfg.Serial.Device = ""
	err := Validate(&cfg)
	assert.Error(err)
	var cfgErr *ConfigError
	assert.ErrorAs(err, &cfgErr)
	assert.Equal("serial.device", cfgErr.Param)

	// no serial line is needed in simulate mode
	cfg.Simulate = true
	assert.NoError(Validate(&cfg))

	cfg = validConfig()
	cfg.Serial.BaudRate = 19200
	assert.Error(Validate(&cfg))

	cfg = validConfig()
	cfg.Serial.RxBufferSize = 64
	assert.Error(Validate(&cfg))

	cfg = validConfig()
	cfg.PowerRatio = 0
	assert.Error(Validate(&cfg))

	cfg = validConfig()
	cfg.Poll.IntervalMillis = 500
	assert.Error(Validate(&cfg))

	cfg = validConfig()
	cfg.Poll.PowerPollWeight = 0
	assert.Error(Validate(&cfg))

	cfg = validConfig()
	cfg.Port = 70000
	assert.Error(Validate(&cfg))
}

func TestCheckMQTTTopic(t *testing.T) {
	assert := assert.New(t)

	topic, err := CheckMQTTTopic("Meter_01")
	assert.NoError(err)
	assert.Equal("meter_01", topic)

	_, err = CheckMQTTTopic("bad/topic")
	assert.Error(err)

	_, err = CheckMQTTTopic("")
	assert.Error(err)
}

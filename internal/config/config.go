package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Serial   SerialConfig `mapstructure:"serial"`
	MQTT     MQTTConfig   `mapstructure:"mqtt"`
	Poll     PollConfig   `mapstructure:"poll"`

	// PowerRatio is the external CT/PT transformer ratio applied to
	// power, current and energy readings.
	PowerRatio uint `mapstructure:"power_ratio"`
	// Simulate replaces the serial line with a synthetic meter.
	Simulate bool `mapstructure:"simulate"`
	Port     uint `mapstructure:"port"`
	HttpLog  bool `mapstructure:"http_log"`
}

type SerialConfig struct {
	Device       string
	BaudRate     uint `mapstructure:"baud_rate"`
	RxBufferSize uint `mapstructure:"rx_buffer_size"`
	// CycleBaudOnDiscoveryFail walks the standard baud rates while the
	// meter address is still unknown.
	CycleBaudOnDiscoveryFail bool `mapstructure:"cycle_baud_on_discovery_fail"`
}

type PollConfig struct {
	IntervalMillis uint32 `mapstructure:"interval_millis"`
	// PowerPollWeight reads the power register this many times per full
	// walk of the measurement set, to keep the power figure fresh.
	PowerPollWeight uint `mapstructure:"power_poll_weight"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// ConfigError marks a parameter that fails validation. Construction never
// proceeds on one of these.
type ConfigError struct {
	Param  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config param %s %s", e.Param, e.Detail)
}

func configError(param, detail string) *ConfigError {
	return &ConfigError{Param: param, Detail: detail}
}

// Validate applies the documented bounds. Call after unmarshal and before
// anything is constructed from the config.
func Validate(cfg *Config) error {
	if !cfg.Simulate && cfg.Serial.Device == "" {
		return configError("serial.device", "is required unless simulate is enabled")
	}
	if cfg.Serial.BaudRate < 1200 || cfg.Serial.BaudRate > 9600 {
		return configError("serial.baud_rate", "should be within 1200..9600")
	}
	if cfg.Serial.RxBufferSize < 128 || cfg.Serial.RxBufferSize > 1024 {
		return configError("serial.rx_buffer_size", "should be within 128..1024")
	}
	if cfg.PowerRatio < 1 || cfg.PowerRatio > 100 {
		return configError("power_ratio", "should be within 1..100")
	}
	if cfg.Poll.IntervalMillis < 1000 {
		return configError("poll.interval_millis", "should be >= 1000")
	}
	if cfg.Poll.PowerPollWeight < 1 || cfg.Poll.PowerPollWeight > 100 {
		return configError("poll.power_poll_weight", "should be within 1..100")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return configError("port", "should be within 1..65535")
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

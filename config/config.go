// Package config loads framework settings from configuration files and
// environment, and pushes them into the bus, member and logger packages.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/b0bbywan/go-busbind/bus"
	"github.com/b0bbywan/go-busbind/logger"
	"github.com/b0bbywan/go-busbind/member"
)

const (
	AppName    = "busbind"
	AppVersion = "0.1.0"
)

type Config struct {
	// Bus selects the default connection, "session" or "system".
	Bus string
	// CallTimeout bounds bus calls whose context has no deadline.
	CallTimeout time.Duration
	// QueueSize is the per-subscription signal buffer.
	QueueSize int

	LogLevel        logger.Level
	ComponentLevels map[string]logger.Level
}

// New loads configuration from /etc/busbind and ~/.config/busbind, with
// defaults for everything. A missing config file is not an error.
func New() (*Config, error) {
	v := viper.New()
	v.SetDefault("bus", "session")
	v.SetDefault("call_timeout", "5s")
	v.SetDefault("queue_size", 32)
	v.SetDefault("log.level", "WARN")
	v.SetDefault("log.components", map[string]string{})

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join("/etc", AppName))
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", AppName))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, isNotFound := err.(viper.ConfigFileNotFoundError); !isNotFound {
			logger.Warn("[config] failed to read config: %v", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	busKind := v.GetString("bus")
	if busKind != "session" && busKind != "system" {
		return nil, fmt.Errorf("config: invalid bus %q", busKind)
	}

	timeout := v.GetDuration("call_timeout")
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	queueSize := v.GetInt("queue_size")
	if queueSize <= 0 {
		return nil, fmt.Errorf("config: invalid queue_size %d", queueSize)
	}

	componentLevels := make(map[string]logger.Level)
	for comp, level := range v.GetStringMapString("log.components") {
		componentLevels[comp] = logger.ParseLevel(level)
	}

	return &Config{
		Bus:             busKind,
		CallTimeout:     timeout,
		QueueSize:       queueSize,
		LogLevel:        logger.ParseLevel(v.GetString("log.level")),
		ComponentLevels: componentLevels,
	}, nil
}

// Apply pushes the settings into the framework packages.
func (c *Config) Apply() {
	logger.SetLevel(c.LogLevel)
	logger.SetComponentLevels(c.ComponentLevels)
	bus.DefaultTimeout = c.CallTimeout
	member.QueueSize = c.QueueSize
}

// OpenBus connects to the configured bus.
func (c *Config) OpenBus() (bus.Bus, error) {
	return bus.Open(c.Bus)
}

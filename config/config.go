// Package config loads the host-side servo configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"dcservo/core"
	"dcservo/sim"
	"dcservo/storage"
)

// Config is the complete servo configuration
type Config struct {
	Control ControlConfig `yaml:"control"`
	Log     LogConfig     `yaml:"log"`
	Console ConsoleConfig `yaml:"console"`
	Plant   sim.Params    `yaml:"plant"`
	Serial  SerialConfig  `yaml:"serial"`
}

// ControlConfig holds the control loop parameters
type ControlConfig struct {
	Kp             float64 `yaml:"kp"`
	UpLimit        float64 `yaml:"up_limit"`
	SymmetricClamp bool    `yaml:"symmetric_clamp"`
	RateHz         uint32  `yaml:"rate_hz"`
}

// LogConfig holds the telemetry parameters
type LogConfig struct {
	Every uint32 `yaml:"every"`
	Dir   string `yaml:"dir"`
	File  string `yaml:"file"`
}

// ConsoleConfig holds the command console parameters
type ConsoleConfig struct {
	StopLogOnReject bool `yaml:"stop_log_on_reject"`
}

// SerialConfig holds the serial link to the target
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// EnvConfig holds the environment overrides
type EnvConfig struct {
	Config string `env:"SERVO_CONFIG"`
	Device string `env:"SERVO_DEVICE"`
	Baud   int    `env:"SERVO_BAUD"`
	LogDir string `env:"SERVO_LOG_DIR"`
	Debug  bool   `env:"SERVO_DEBUG" envDefault:"false"`
}

// LoadConfig parses a YAML configuration and applies defaults
func LoadConfig(data []byte) (*Config, error) {
	var config Config

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&config)

	return &config, nil
}

// LoadFile reads and parses a YAML configuration file. An empty path gives
// the defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return LoadConfig(data)
}

// LoadEnv reads the environment overrides
func LoadEnv() (EnvConfig, error) {
	var e EnvConfig
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse environment: %w", err)
	}
	return e, nil
}

// Default returns the standard configuration
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *Config) {
	if config.Control.Kp == 0 {
		config.Control.Kp = core.DefaultKp
	}
	if config.Control.UpLimit == 0 {
		config.Control.UpLimit = core.DefaultUpLimit
	}
	if config.Control.RateHz == 0 {
		config.Control.RateHz = 10000 // 100 us period
	}

	if config.Log.Every == 0 {
		config.Log.Every = core.DefaultLogEvery
	}
	if config.Log.Dir == "" {
		config.Log.Dir = "logs"
	}
	if config.Log.File == "" {
		config.Log.File = storage.DefaultLogFile
	}

	defaults := sim.DefaultParams()
	if config.Plant.MaxSpeed == 0 {
		config.Plant.MaxSpeed = defaults.MaxSpeed
	}
	if config.Plant.TimeConstant == 0 {
		config.Plant.TimeConstant = defaults.TimeConstant
	}
	if config.Plant.VelocityPeriod == 0 {
		config.Plant.VelocityPeriod = defaults.VelocityPeriod
	}

	if config.Serial.Device == "" {
		config.Serial.Device = "/dev/ttyACM0"
	}
	if config.Serial.Baud == 0 {
		config.Serial.Baud = 115200
	}
}

// ApplyEnv overwrites the configuration with any override that is set
func (c *Config) ApplyEnv(e EnvConfig) {
	if e.Device != "" {
		c.Serial.Device = e.Device
	}
	if e.Baud != 0 {
		c.Serial.Baud = e.Baud
	}
	if e.LogDir != "" {
		c.Log.Dir = e.LogDir
	}
}

// Validate reports every out of range setting
func (c *Config) Validate() error {
	var err error
	if c.Control.Kp <= 0 {
		err = multierr.Append(err, fmt.Errorf("control.kp must be positive, got %v", c.Control.Kp))
	}
	if c.Control.UpLimit <= 0 || c.Control.UpLimit >= core.MaxDuty {
		err = multierr.Append(err, fmt.Errorf("control.up_limit must be in (0, %d), got %v", core.MaxDuty, c.Control.UpLimit))
	}
	if c.Control.RateHz > core.TimerFreq {
		err = multierr.Append(err, fmt.Errorf("control.rate_hz must not exceed %d, got %d", core.TimerFreq, c.Control.RateHz))
	}
	if c.Plant.MaxSpeed < 0 {
		err = multierr.Append(err, fmt.Errorf("plant.max_speed must not be negative, got %v", c.Plant.MaxSpeed))
	}
	if c.Serial.Baud < 0 {
		err = multierr.Append(err, fmt.Errorf("serial.baud must not be negative, got %d", c.Serial.Baud))
	}
	return err
}

// Controller returns the controller configuration
func (c *Config) Controller() core.ControllerConfig {
	cfg := core.ControllerConfig{
		Kp:      c.Control.Kp,
		UpLimit: c.Control.UpLimit,
		Clamp:   core.ClampUpper,
	}
	if c.Control.SymmetricClamp {
		cfg.Clamp = core.ClampSymmetric
	}
	return cfg
}

// ConsoleOptions returns the console configuration
func (c *Config) ConsoleOptions() core.ConsoleConfig {
	return core.ConsoleConfig{StopLogOnReject: c.Console.StopLogOnReject}
}

// Period returns the control period in timer ticks
func (c *Config) Period() uint32 {
	return core.PeriodFromHz(c.Control.RateHz)
}

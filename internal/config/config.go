package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTickRate    = 100
	DefaultSetpoint    = 1.5
	DefaultKp          = 12.0
	DefaultKi          = 0.4
	DefaultKd          = 6.0
	DefaultReadTimeout = 5 // milliseconds
)

type Config struct {
	TickRateHz    int          `yaml:"tick_rate_hz"`
	ReadTimeoutMs int          `yaml:"read_timeout_ms"`
	AltitudeHold  bool         `yaml:"altitude_hold"`
	Setpoint      float64      `yaml:"setpoint"`
	PID           PIDConfig    `yaml:"pid"`
	Noise         NoiseConfig  `yaml:"noise"`
	IMU           IMUConfig    `yaml:"imu"`
	Motors        MotorsConfig `yaml:"motors"`
	Telemetry     Telemetry    `yaml:"telemetry"`
}

type PIDConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// NoiseConfig holds the filter noise diagonals in state order
// [x, y, vx, vy].
type NoiseConfig struct {
	Process     [4]float64 `yaml:"process"`
	Measurement [4]float64 `yaml:"measurement"`
	InitialCov  [4]float64 `yaml:"initial_cov"`
}

type IMUConfig struct {
	Bus     byte `yaml:"bus"`
	Address byte `yaml:"address"`
}

type MotorsConfig struct {
	// Pins maps motor index to BCM pin number.
	Pins        [4]int `yaml:"pins"`
	FrequencyHz int    `yaml:"frequency_hz"`
}

type Telemetry struct {
	Broker      string `yaml:"broker"`
	Port        string `yaml:"port"`
	TopicPrefix string `yaml:"topic_prefix"`
	ListenAddr  string `yaml:"listen_addr"`
}

func DefaultConfig() *Config {
	return &Config{
		TickRateHz:    DefaultTickRate,
		ReadTimeoutMs: DefaultReadTimeout,
		AltitudeHold:  false,
		Setpoint:      DefaultSetpoint,
		PID:           PIDConfig{Kp: DefaultKp, Ki: DefaultKi, Kd: DefaultKd},
		Noise: NoiseConfig{
			Process:     [4]float64{0.01, 0.01, 0.05, 0.05},
			Measurement: [4]float64{0.5, 0.5, 1.0, 1.0},
			InitialCov:  [4]float64{1, 1, 100, 100},
		},
		IMU: IMUConfig{Bus: 1, Address: 0x68},
		Motors: MotorsConfig{
			Pins:        [4]int{12, 13, 18, 19},
			FrequencyHz: 50,
		},
		Telemetry: Telemetry{
			Broker:      "localhost",
			Port:        "1883",
			TopicPrefix: "quadfc",
			ListenAddr:  ":8000",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive, got %d", c.TickRateHz)
	}
	if c.ReadTimeoutMs <= 0 {
		return fmt.Errorf("read_timeout_ms must be positive, got %d", c.ReadTimeoutMs)
	}
	if c.Setpoint < 0 {
		return fmt.Errorf("setpoint must be non-negative, got %f", c.Setpoint)
	}
	for i, v := range c.Noise.Process {
		if v < 0 {
			return fmt.Errorf("noise.process[%d] must be non-negative, got %f", i, v)
		}
	}
	for i, v := range c.Noise.Measurement {
		if v < 0 {
			return fmt.Errorf("noise.measurement[%d] must be non-negative, got %f", i, v)
		}
	}
	seen := make(map[int]bool)
	for i, pin := range c.Motors.Pins {
		if pin <= 0 {
			return fmt.Errorf("motors.pins[%d] must be positive, got %d", i, pin)
		}
		if seen[pin] {
			return fmt.Errorf("motors.pins[%d] duplicates pin %d", i, pin)
		}
		seen[pin] = true
	}
	return nil
}

// Dt returns the control-loop period in seconds.
func (c *Config) Dt() float64 {
	return 1.0 / float64(c.TickRateHz)
}

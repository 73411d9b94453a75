package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the static configuration for the monitor. Values come from
// environment variables with defaults; an optional YAML file (CONFIG_FILE)
// overrides them.
type Config struct {
	// Core settings
	MonitorName string `yaml:"monitor_name"`
	OPCUAPort   int    `yaml:"opcua_port"`
	HTTPPort    int    `yaml:"http_port"`

	// Timing settings. The tick interval is env-only: YAML has no native
	// duration scalar.
	TickInterval    time.Duration `yaml:"-"`
	HistoryCapacity int           `yaml:"history_capacity"`

	// Phase durations in ticks
	Phases PhaseConfig `yaml:"phases"`

	// Initial process targets (runtime-adjustable afterwards)
	Targets Targets `yaml:"targets"`
}

// PhaseConfig holds the per-phase target durations in ticks.
type PhaseConfig struct {
	Idle     int `yaml:"idle"`
	Closing  int `yaml:"closing"`
	Heating  int `yaml:"heating"`
	Pressing int `yaml:"pressing"`
	Cooling  int `yaml:"cooling"`
	Opening  int `yaml:"opening"`
}

// Load reads configuration from environment variables with defaults, then
// applies the YAML file named by CONFIG_FILE if set.
func Load() (*Config, error) {
	cfg := &Config{
		MonitorName: getEnvOrDefault("MONITOR_NAME", "MoldPress-01"),
		OPCUAPort:   getEnvAsIntOrDefault("OPCUA_PORT", 4840),
		HTTPPort:    getEnvAsIntOrDefault("HTTP_PORT", 8081),

		TickInterval:    getDurationOrDefault("TICK_INTERVAL", 1*time.Second),
		HistoryCapacity: getEnvAsIntOrDefault("HISTORY_CAPACITY", 60),

		Phases: PhaseConfig{
			Idle:     getEnvAsIntOrDefault("PHASE_IDLE_TICKS", 5),
			Closing:  getEnvAsIntOrDefault("PHASE_CLOSING_TICKS", 3),
			Heating:  getEnvAsIntOrDefault("PHASE_HEATING_TICKS", 15),
			Pressing: getEnvAsIntOrDefault("PHASE_PRESSING_TICKS", 10),
			Cooling:  getEnvAsIntOrDefault("PHASE_COOLING_TICKS", 8),
			Opening:  getEnvAsIntOrDefault("PHASE_OPENING_TICKS", 4),
		},

		Targets: Targets{
			TargetTemp:        getEnvAsFloatOrDefault("TARGET_TEMP", 165.0),
			TargetPressure:    getEnvAsFloatOrDefault("TARGET_PRESSURE", 180.0),
			TolerancePct:      getEnvAsFloatOrDefault("TOLERANCE_PCT", 10.0),
			VibrationSafe:     getEnvAsFloatOrDefault("VIBRATION_SAFE", 4.0),
			VibrationWarning:  getEnvAsFloatOrDefault("VIBRATION_WARNING", 4.5),
			VibrationCritical: getEnvAsFloatOrDefault("VIBRATION_CRITICAL", 6.0),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, c)
}

// Validate rejects non-positive tick intervals and phase durations.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("history capacity must be positive, got %d", c.HistoryCapacity)
	}
	for name, ticks := range map[string]int{
		"idle":     c.Phases.Idle,
		"closing":  c.Phases.Closing,
		"heating":  c.Phases.Heating,
		"pressing": c.Phases.Pressing,
		"cooling":  c.Phases.Cooling,
		"opening":  c.Phases.Opening,
	} {
		if ticks <= 0 {
			return fmt.Errorf("phase duration %s must be positive, got %d", name, ticks)
		}
	}
	return c.Targets.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

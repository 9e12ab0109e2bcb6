package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// #region types
// Config holds all Veto configuration.
type Config struct {
	DBPath     string           `yaml:"db_path" json:"db_path"`
	Timezone   string           `yaml:"timezone" json:"timezone"`
	Log        LogConfig        `yaml:"log" json:"log"`
	GRPC       GRPCConfig       `yaml:"grpc" json:"grpc"`
	Confidence ConfidenceConfig `yaml:"confidence" json:"confidence"`
	Guardrail  GuardrailConfig  `yaml:"guardrail" json:"guardrail"`
	Patterns   PatternsConfig   `yaml:"patterns" json:"patterns"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
}

// GRPCConfig configures the optional gRPC listener. Empty Addr disables it.
type GRPCConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// ConfidenceConfig holds the saturation points of the confidence formula.
type ConfidenceConfig struct {
	DaysSaturation      int     `yaml:"days_saturation" json:"days_saturation"`
	SimilarSaturation   int     `yaml:"similar_states_saturation" json:"similar_states_saturation"`
	OutcomeSaturation   int     `yaml:"outcome_saturation" json:"outcome_saturation"`
	MinOutcomeSamples   int     `yaml:"min_outcome_samples" json:"min_outcome_samples"`
	SimilarWindow       int     `yaml:"similar_window" json:"similar_window"`
	ActivationThreshold float64 `yaml:"activation_threshold" json:"activation_threshold"`
}

// GuardrailConfig holds the refusal rule thresholds.
type GuardrailConfig struct {
	MinAttempts       int     `yaml:"min_attempts" json:"min_attempts"`
	PoorRateThreshold float64 `yaml:"poor_rate_threshold" json:"poor_rate_threshold"`
	DipEnergyBelow    int     `yaml:"dip_energy_below" json:"dip_energy_below"`
	LowEnergyMax      int     `yaml:"low_energy_max" json:"low_energy_max"`
	LowFocusMax       int     `yaml:"low_focus_max" json:"low_focus_max"`
	OverrideDaysBack  int     `yaml:"override_days_back" json:"override_days_back"`
}

// PatternsConfig bounds the pattern query window.
type PatternsConfig struct {
	DefaultDaysBack int `yaml:"default_days_back" json:"default_days_back"`
	MaxDaysBack     int `yaml:"max_days_back" json:"max_days_back"`
}

// #endregion types

// #region defaults
// DefaultConfig returns the product thresholds.
func DefaultConfig() *Config {
	return &Config{
		DBPath:   "veto.db",
		Timezone: "America/Los_Angeles",
		Log:      LogConfig{Level: "info"},
		Confidence: ConfidenceConfig{
			DaysSaturation:      14,
			SimilarSaturation:   5,
			OutcomeSaturation:   20,
			MinOutcomeSamples:   5,
			SimilarWindow:       2,
			ActivationThreshold: 0.70,
		},
		Guardrail: GuardrailConfig{
			MinAttempts:       3,
			PoorRateThreshold: 0.5,
			DipEnergyBelow:    6,
			LowEnergyMax:      4,
			LowFocusMax:       4,
			OverrideDaysBack:  14,
		},
		Patterns: PatternsConfig{
			DefaultDaysBack: 14,
			MaxDaysBack:     90,
		},
	}
}

// #endregion defaults

// #region load
// Load reads configuration from path. A missing file yields defaults.
// ".json" files are parsed as JSON, everything else as YAML.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if strings.EqualFold(filepath.Ext(path), ".json") {
				if err := json.Unmarshal(data, cfg); err != nil {
					return nil, fmt.Errorf("parse JSON config: %w", err)
				}
			} else if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse YAML config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DBPath = envOr("VETO_DB", c.DBPath)
	c.Timezone = envOr("VETO_TZ", c.Timezone)
	c.GRPC.Addr = envOr("VETO_GRPC_ADDR", c.GRPC.Addr)
	c.Log.Level = envOr("VETO_LOG_LEVEL", c.Log.Level)
}

// #endregion load

// #region validate
// Validate rejects unusable settings.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("config: db_path is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	cc := c.Confidence
	if cc.DaysSaturation <= 0 || cc.SimilarSaturation <= 0 || cc.OutcomeSaturation <= 0 {
		return errors.New("config: confidence saturation values must be positive")
	}
	if cc.MinOutcomeSamples < 0 || cc.SimilarWindow < 0 {
		return errors.New("config: confidence sample counts must not be negative")
	}
	if cc.ActivationThreshold <= 0 || cc.ActivationThreshold > 1 {
		return fmt.Errorf("config: activation_threshold %.2f outside (0,1]", cc.ActivationThreshold)
	}
	if c.Patterns.DefaultDaysBack <= 0 || c.Patterns.MaxDaysBack < c.Patterns.DefaultDaysBack {
		return errors.New("config: patterns window must satisfy 0 < default_days_back <= max_days_back")
	}
	if c.Guardrail.OverrideDaysBack <= 0 {
		return errors.New("config: guardrail override_days_back must be positive")
	}
	return nil
}

// #endregion validate

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers

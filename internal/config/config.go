// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Assist() AssistConfig
	Damping() DampingConfig
	Device() DeviceConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	AssistCfg  AssistConfig  `mapstructure:"assist" yaml:"assist"`
	DampingCfg DampingConfig `mapstructure:"damping" yaml:"damping"`
	DeviceCfg  DeviceConfig  `mapstructure:"device" yaml:"device"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Assist() AssistConfig   { return c.AssistCfg }
func (c *Config) Damping() DampingConfig { return c.DampingCfg }
func (c *Config) Device() DeviceConfig   { return c.DeviceCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the colors for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// AssistConfig tunes click-rate estimation, trigger detection and the
// synthetic burst.
type AssistConfig struct {
	// HardCPSLimit, when positive, caps real plus synthetic clicks per
	// second. Zero leaves bursts unthrottled.
	HardCPSLimit         float64       `mapstructure:"hard_cps_limit" yaml:"hard_cps_limit"`
	TargetCPSLow         float64       `mapstructure:"target_cps_low" yaml:"target_cps_low"`
	TargetCPSHigh        float64       `mapstructure:"target_cps_high" yaml:"target_cps_high"`
	TriggerButtons       []string      `mapstructure:"trigger_buttons" yaml:"trigger_buttons"`
	DoubleClickThreshold time.Duration `mapstructure:"double_click_threshold" yaml:"double_click_threshold"`
	BurstMin             int           `mapstructure:"burst_min" yaml:"burst_min"`
	BurstMax             int           `mapstructure:"burst_max" yaml:"burst_max"`
	HoldMin              time.Duration `mapstructure:"hold_min" yaml:"hold_min"`
	HoldMax              time.Duration `mapstructure:"hold_max" yaml:"hold_max"`
	ProcessingOffset     time.Duration `mapstructure:"processing_offset" yaml:"processing_offset"`
	WorkerPollTimeout    time.Duration `mapstructure:"worker_poll_timeout" yaml:"worker_poll_timeout"`
	Window               time.Duration `mapstructure:"window" yaml:"window"`
}

// DampingConfig tunes the cursor displacement damper.
type DampingConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	CPSThreshold  float64       `mapstructure:"cps_threshold" yaml:"cps_threshold"`
	Multiplier    float64       `mapstructure:"multiplier" yaml:"multiplier"`
	RampDown      time.Duration `mapstructure:"ramp_down" yaml:"ramp_down"`
	RampUp        time.Duration `mapstructure:"ramp_up" yaml:"ramp_up"`
	StaleTimeout  time.Duration `mapstructure:"stale_timeout" yaml:"stale_timeout"`
	PollingRateHz int           `mapstructure:"polling_rate_hz" yaml:"polling_rate_hz"`
}

// TickPeriod is the duration of one polling tick.
func (d DampingConfig) TickPeriod() time.Duration {
	if d.PollingRateHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(d.PollingRateHz)
}

// DeviceConfig selects the input trace consumed by the virtual devices.
type DeviceConfig struct {
	EventsFile string `mapstructure:"events_file" yaml:"events_file"`
	Follow     bool   `mapstructure:"follow" yaml:"follow"`
	Pace       bool   `mapstructure:"pace" yaml:"pace"`
}

// knownButtons are the button names accepted in assist.trigger_buttons.
var knownButtons = map[string]struct{}{
	"left": {}, "right": {}, "middle": {}, "x1": {}, "x2": {},
}

// Validate checks the assist section for internally consistent values.
func (a AssistConfig) Validate() error {
	if a.HardCPSLimit < 0 {
		return errors.New("assist.hard_cps_limit must not be negative")
	}
	if a.TargetCPSLow <= 0 || a.TargetCPSHigh <= 0 {
		return errors.New("assist.target_cps_low and assist.target_cps_high must be positive")
	}
	if a.TargetCPSLow > a.TargetCPSHigh {
		return errors.New("assist.target_cps_low must not exceed assist.target_cps_high")
	}
	if a.HardCPSLimit > 0 && a.TargetCPSHigh > a.HardCPSLimit {
		return errors.New("assist.target_cps_high must not exceed assist.hard_cps_limit")
	}
	if len(a.TriggerButtons) == 0 {
		return errors.New("assist.trigger_buttons must name at least one button")
	}
	for _, b := range a.TriggerButtons {
		if _, ok := knownButtons[strings.ToLower(b)]; !ok {
			return fmt.Errorf("assist.trigger_buttons: unknown button %q", b)
		}
	}
	if a.DoubleClickThreshold <= 0 {
		return errors.New("assist.double_click_threshold must be a positive duration")
	}
	if a.BurstMin < 1 || a.BurstMax < a.BurstMin {
		return errors.New("assist.burst_min must be >= 1 and <= assist.burst_max")
	}
	if a.HoldMin < 0 || a.HoldMax < a.HoldMin {
		return errors.New("assist.hold_min must be >= 0 and <= assist.hold_max")
	}
	if a.ProcessingOffset < 0 {
		return errors.New("assist.processing_offset must not be negative")
	}
	if a.WorkerPollTimeout <= 0 {
		return errors.New("assist.worker_poll_timeout must be a positive duration")
	}
	if a.Window <= 0 {
		return errors.New("assist.window must be a positive duration")
	}
	return nil
}

// Validate checks the damping section.
func (d DampingConfig) Validate() error {
	if !d.Enabled {
		return nil
	}
	if d.Multiplier <= 0 || d.Multiplier > 1 {
		return errors.New("damping.multiplier must be in (0, 1]")
	}
	if d.CPSThreshold < 0 {
		return errors.New("damping.cps_threshold must not be negative")
	}
	if d.PollingRateHz <= 0 {
		return errors.New("damping.polling_rate_hz must be a positive integer")
	}
	if d.RampDown <= 0 || d.RampUp <= 0 {
		return errors.New("damping.ramp_down and damping.ramp_up must be positive durations")
	}
	if d.StaleTimeout <= 0 {
		return errors.New("damping.stale_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the whole configuration and joins every section error.
func (c *Config) Validate() error {
	var errs []error
	if err := c.AssistCfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.DampingCfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.DeviceCfg.Follow && c.DeviceCfg.EventsFile == "" {
		errs = append(errs, errors.New("device.follow requires device.events_file"))
	}
	return errors.Join(errs...)
}

// NewDefaultConfig creates a configuration populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static, so a failure here is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper binds environment variables, unmarshals and validates.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// EnvPrefix is the prefix for environment overrides, e.g. CLICKASSIST_DAMPING_MULTIPLIER.
const EnvPrefix = "CLICKASSIST"

// SetDefaults registers every key so env overrides and Unmarshal see them.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "clickassist")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Assist --
	v.SetDefault("assist.hard_cps_limit", 0.0)
	v.SetDefault("assist.target_cps_low", 15.0)
	v.SetDefault("assist.target_cps_high", 17.0)
	v.SetDefault("assist.trigger_buttons", []string{"left", "right"})
	v.SetDefault("assist.double_click_threshold", "150ms")
	v.SetDefault("assist.burst_min", 2)
	v.SetDefault("assist.burst_max", 4)
	v.SetDefault("assist.hold_min", "10ms")
	v.SetDefault("assist.hold_max", "20ms")
	v.SetDefault("assist.processing_offset", "15ms")
	v.SetDefault("assist.worker_poll_timeout", "50ms")
	v.SetDefault("assist.window", "300ms")

	// -- Damping --
	v.SetDefault("damping.enabled", true)
	v.SetDefault("damping.cps_threshold", 10.0)
	v.SetDefault("damping.multiplier", 0.5)
	v.SetDefault("damping.ramp_down", "40ms")
	v.SetDefault("damping.ramp_up", "15ms")
	v.SetDefault("damping.stale_timeout", "100ms")
	v.SetDefault("damping.polling_rate_hz", 250)

	// -- Device --
	v.SetDefault("device.events_file", "")
	v.SetDefault("device.follow", false)
	v.SetDefault("device.pace", true)
}

// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/xkilldash9x/tourguard-cli/api/schemas"
)

// Interface defines the contract for accessing engine configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Resolver() ResolverConfig
	Health() HealthConfig
	Deploy() DeployConfig
	Observer() ObserverConfig
	Database() DatabaseConfig

	SetDeployEnvironment(env schemas.Environment)
	SetDeployStrict(strict bool)
	SetHealthElementTimeout(d time.Duration)
}

// Config holds the entire engine configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	ResolverCfg ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	HealthCfg   HealthConfig   `mapstructure:"health" yaml:"health"`
	DeployCfg   DeployConfig   `mapstructure:"deploy" yaml:"deploy"`
	ObserverCfg ObserverConfig `mapstructure:"observer" yaml:"observer"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// --- Interface Method Implementations ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Resolver() ResolverConfig { return c.ResolverCfg }
func (c *Config) Health() HealthConfig     { return c.HealthCfg }
func (c *Config) Deploy() DeployConfig     { return c.DeployCfg }
func (c *Config) Observer() ObserverConfig { return c.ObserverCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }

func (c *Config) SetDeployEnvironment(env schemas.Environment) { c.DeployCfg.Environment = env }
func (c *Config) SetDeployStrict(strict bool)                  { c.DeployCfg.Strict = strict }
func (c *Config) SetHealthElementTimeout(d time.Duration)      { c.HealthCfg.ElementTimeout = d }

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console encoder.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ResolverConfig tunes element lookup and waiting.
type ResolverConfig struct {
	// DefaultTimeout bounds a FindElement wait when the caller passes none.
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	// PollInterval is how often the waiter re-queries between mutations.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// MinVisibleOpacity is the opacity at or below which an element is hidden.
	MinVisibleOpacity float64 `mapstructure:"min_visible_opacity" yaml:"min_visible_opacity"`
}

// HealthConfig tunes the health check pipeline. The heuristic thresholds and
// score deductions are deliberately configurable; the defaults mirror observed
// production values rather than derived constants.
type HealthConfig struct {
	ElementTimeout    time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	SlowStepThreshold time.Duration `mapstructure:"slow_step_threshold" yaml:"slow_step_threshold"`
	MaxSteps          int           `mapstructure:"max_steps" yaml:"max_steps"`
	MaxDuration       time.Duration `mapstructure:"max_duration" yaml:"max_duration"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	MaxTitleLength    int           `mapstructure:"max_title_length" yaml:"max_title_length"`
	MaxDescLength     int           `mapstructure:"max_desc_length" yaml:"max_desc_length"`
	// MaxSelectorParts flags selectors with too many compound parts.
	MaxSelectorParts int          `mapstructure:"max_selector_parts" yaml:"max_selector_parts"`
	HealthyScore     int          `mapstructure:"healthy_score" yaml:"healthy_score"`
	Deductions       ScoreWeights `mapstructure:"deductions" yaml:"deductions"`
}

// ScoreWeights are the per-finding score deductions.
type ScoreWeights struct {
	Critical     int `mapstructure:"critical" yaml:"critical"`
	Error        int `mapstructure:"error" yaml:"error"`
	Warning      int `mapstructure:"warning" yaml:"warning"`
	HighImpact   int `mapstructure:"high_impact" yaml:"high_impact"`
	MediumImpact int `mapstructure:"medium_impact" yaml:"medium_impact"`
	LowImpact    int `mapstructure:"low_impact" yaml:"low_impact"`
	SlowStep     int `mapstructure:"slow_step" yaml:"slow_step"`
}

// DeployConfig tunes the deployment gate.
type DeployConfig struct {
	Environment      schemas.Environment `mapstructure:"environment" yaml:"environment"`
	Strict           bool                `mapstructure:"strict" yaml:"strict"`
	MaxWarnings      int                 `mapstructure:"max_warnings" yaml:"max_warnings"`
	MinAverageScore  float64             `mapstructure:"min_average_score" yaml:"min_average_score"`
	MinAccessibility int                 `mapstructure:"min_accessibility" yaml:"min_accessibility"`

	SimulatePerformance bool `mapstructure:"simulate_performance" yaml:"simulate_performance"`
	CheckCrossBrowser   bool `mapstructure:"check_cross_browser" yaml:"check_cross_browser"`
	SimulateLoad        bool `mapstructure:"simulate_load" yaml:"simulate_load"`

	// SlowLoadThreshold flags simulated per-tour loads above it.
	SlowLoadThreshold time.Duration `mapstructure:"slow_load_threshold" yaml:"slow_load_threshold"`
	// SlowResponseThreshold flags load-simulation average responses above it.
	SlowResponseThreshold time.Duration `mapstructure:"slow_response_threshold" yaml:"slow_response_threshold"`
	LoadSessions          int           `mapstructure:"load_sessions" yaml:"load_sessions"`
	// LoadSessionRate paces simulated sessions per second.
	LoadSessionRate float64 `mapstructure:"load_session_rate" yaml:"load_session_rate"`
}

// ObserverConfig tunes the observer lifecycle manager.
type ObserverConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	// MaxObserverAge is the age past which the sweep force-disconnects a record.
	MaxObserverAge time.Duration `mapstructure:"max_observer_age" yaml:"max_observer_age"`
	// LeakActiveThreshold and LeakAgeThreshold drive the memoryLeakRisk flag.
	LeakActiveThreshold int           `mapstructure:"leak_active_threshold" yaml:"leak_active_threshold"`
	LeakAgeThreshold    time.Duration `mapstructure:"leak_age_threshold" yaml:"leak_age_threshold"`
}

// DatabaseConfig connects the optional outcome store.
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

// SetDefaults registers the default values on a viper instance. The numeric
// defaults mirror the tuned production values.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "tourguard")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("resolver.default_timeout", 5*time.Second)
	v.SetDefault("resolver.poll_interval", 100*time.Millisecond)
	v.SetDefault("resolver.min_visible_opacity", 0.0)

	v.SetDefault("health.element_timeout", 5*time.Second)
	v.SetDefault("health.slow_step_threshold", time.Second)
	v.SetDefault("health.max_steps", 20)
	v.SetDefault("health.max_duration", 10*time.Minute)
	v.SetDefault("health.cache_ttl", 5*time.Minute)
	v.SetDefault("health.max_title_length", 100)
	v.SetDefault("health.max_desc_length", 300)
	v.SetDefault("health.max_selector_parts", 4)
	v.SetDefault("health.healthy_score", 70)
	v.SetDefault("health.deductions.critical", 30)
	v.SetDefault("health.deductions.error", 15)
	v.SetDefault("health.deductions.warning", 5)
	v.SetDefault("health.deductions.high_impact", 10)
	v.SetDefault("health.deductions.medium_impact", 5)
	v.SetDefault("health.deductions.low_impact", 2)
	v.SetDefault("health.deductions.slow_step", 3)

	v.SetDefault("deploy.environment", string(schemas.EnvDevelopment))
	v.SetDefault("deploy.strict", false)
	v.SetDefault("deploy.max_warnings", 25)
	v.SetDefault("deploy.min_average_score", 70.0)
	v.SetDefault("deploy.min_accessibility", 70)
	v.SetDefault("deploy.simulate_performance", true)
	v.SetDefault("deploy.check_cross_browser", true)
	v.SetDefault("deploy.simulate_load", false)
	v.SetDefault("deploy.slow_load_threshold", time.Second)
	v.SetDefault("deploy.slow_response_threshold", 2*time.Second)
	v.SetDefault("deploy.load_sessions", 10)
	v.SetDefault("deploy.load_session_rate", 20.0)

	v.SetDefault("observer.sweep_interval", 30*time.Second)
	v.SetDefault("observer.max_observer_age", 5*time.Minute)
	v.SetDefault("observer.leak_active_threshold", 20)
	v.SetDefault("observer.leak_age_threshold", 10*time.Minute)

	v.SetDefault("database.enabled", false)
}

// Validate sanity-checks the unmarshalled configuration.
func (c *Config) Validate() error {
	if !c.DeployCfg.Environment.IsValid() {
		return fmt.Errorf("deploy.environment: unknown environment %q", c.DeployCfg.Environment)
	}
	if c.HealthCfg.CacheTTL <= 0 {
		return fmt.Errorf("health.cache_ttl must be positive, got %s", c.HealthCfg.CacheTTL)
	}
	if c.ResolverCfg.PollInterval <= 0 {
		return fmt.Errorf("resolver.poll_interval must be positive, got %s", c.ResolverCfg.PollInterval)
	}
	if c.ObserverCfg.SweepInterval <= 0 {
		return fmt.Errorf("observer.sweep_interval must be positive, got %s", c.ObserverCfg.SweepInterval)
	}
	if c.DatabaseCfg.Enabled && c.DatabaseCfg.DSN == "" {
		return fmt.Errorf("database.dsn is required when database.enabled is true")
	}
	return nil
}

// Default returns a Config populated with the registered defaults, bypassing
// any config file. Used by tests and by callers embedding the engine.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Unmarshalling pure defaults cannot fail at runtime.
		panic(fmt.Sprintf("config: default unmarshal failed: %v", err))
	}
	return &cfg
}

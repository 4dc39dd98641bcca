// Package config provides configuration management for the scan server.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Engine and Scan Defaults
const (
	// defaultRiskFreeRate is used when engine.risk_free_rate is unset
	defaultRiskFreeRate = 0.05
	// defaultVol is the implied volatility used when a quote carries none
	defaultVol = 0.25
	// defaultCurvePoints is the payoff diagram sample count
	defaultCurvePoints = 81
	// defaultTopN is the scan shortlist length
	defaultTopN = 10
	// defaultBodyWindow bounds four-leg body strikes around at-the-money
	defaultBodyWindow = 5
	// defaultMaxWingSteps bounds how far a wing may sit beyond its body
	defaultMaxWingSteps = 6
	// defaultMaxEvaluations is the per-scan evaluation budget
	defaultMaxEvaluations = 400
	// defaultParallelism is the concurrent candidate evaluation limit
	defaultParallelism = 4
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Server      ServerConfig      `yaml:"server"`
	Chain       ChainConfig       `yaml:"chain"`
	Engine      EngineConfig      `yaml:"engine"`
	Scan        ScanConfig        `yaml:"scan"`
	Storage     StorageConfig     `yaml:"storage"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // live | static
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen          string `yaml:"listen"`
	AuthToken       string `yaml:"auth_token"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// ChainConfig defines market-data provider settings.
type ChainConfig struct {
	Provider string `yaml:"provider"` // tradier | static
	APIKey   string `yaml:"api_key"`
	Sandbox  bool   `yaml:"sandbox"`
	// Symbol is the default underlying when a request names none
	Symbol string `yaml:"symbol"`
	// StaticSpot seeds the synthetic provider's underlying price
	StaticSpot float64 `yaml:"static_spot"`
}

// EngineConfig defines payoff-engine parameters.
type EngineConfig struct {
	RiskFreeRate float64 `yaml:"risk_free_rate"`
	DefaultVol   float64 `yaml:"default_vol"`
	CurvePoints  int     `yaml:"curve_points"`
}

// ScanConfig defines combination-scan bounds.
type ScanConfig struct {
	TopN           int `yaml:"top_n"`
	BodyWindow     int `yaml:"body_window"`
	MaxWingSteps   int `yaml:"max_wing_steps"`
	MaxEvaluations int `yaml:"max_evaluations"`
	Parallelism    int `yaml:"parallelism"`
}

// StorageConfig defines storage settings for saved strategies.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent,
// filling documented defaults for unset fields.
func (c *Config) Validate() error {
	c.normalize()

	// Environment validation
	if c.Environment.Mode != "live" && c.Environment.Mode != "static" {
		return fmt.Errorf("environment.mode must be 'live' or 'static'")
	}
	switch c.Environment.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be debug, info, warn or error")
	}

	// Server validation
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	for name, v := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s invalid: %w", name, err)
		}
	}

	// Chain validation
	switch c.Chain.Provider {
	case "tradier":
		if c.Chain.APIKey == "" {
			return fmt.Errorf("chain.api_key is required for the tradier provider")
		}
	case "static":
	default:
		return fmt.Errorf("chain.provider must be 'tradier' or 'static'")
	}
	if c.Chain.Symbol == "" {
		return fmt.Errorf("chain.symbol is required")
	}

	// Engine validation
	if c.Engine.RiskFreeRate < 0 || c.Engine.RiskFreeRate > 0.25 {
		return fmt.Errorf("engine.risk_free_rate must be within [0, 0.25]")
	}
	if c.Engine.DefaultVol <= 0 || c.Engine.DefaultVol > 5 {
		return fmt.Errorf("engine.default_vol must be in (0, 5]")
	}
	if c.Engine.CurvePoints < 2 {
		return fmt.Errorf("engine.curve_points must be >= 2")
	}

	// Scan validation
	if c.Scan.TopN <= 0 {
		return fmt.Errorf("scan.top_n must be > 0")
	}
	if c.Scan.BodyWindow <= 0 {
		return fmt.Errorf("scan.body_window must be > 0")
	}
	if c.Scan.MaxWingSteps <= 0 {
		return fmt.Errorf("scan.max_wing_steps must be > 0")
	}
	if c.Scan.MaxEvaluations <= 0 {
		return fmt.Errorf("scan.max_evaluations must be > 0")
	}
	if c.Scan.Parallelism <= 0 {
		return fmt.Errorf("scan.parallelism must be > 0")
	}

	// Storage validation
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	return nil
}

// IsStaticChain returns true when the server is configured with the
// deterministic synthetic chain provider.
func (c *Config) IsStaticChain() bool {
	return c.Chain.Provider == "static"
}

// ReadTimeout returns the parsed server read timeout.
func (c *Config) ReadTimeout() time.Duration { return durationOr(c.Server.ReadTimeout, 15*time.Second) }

// WriteTimeout returns the parsed server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return durationOr(c.Server.WriteTimeout, 30*time.Second)
}

// ShutdownTimeout returns the parsed graceful-shutdown deadline.
func (c *Config) ShutdownTimeout() time.Duration {
	return durationOr(c.Server.ShutdownTimeout, 10*time.Second)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// normalize fills defaults for unset fields.
func (c *Config) normalize() {
	if c.Environment.Mode == "" {
		c.Environment.Mode = "static"
	}
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8781"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "15s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Chain.Provider == "" {
		c.Chain.Provider = "static"
	}
	if c.Chain.Symbol == "" {
		c.Chain.Symbol = "SPY"
	}
	if c.Chain.StaticSpot == 0 {
		c.Chain.StaticSpot = 100
	}
	if c.Engine.RiskFreeRate == 0 {
		c.Engine.RiskFreeRate = defaultRiskFreeRate
	}
	if c.Engine.DefaultVol == 0 {
		c.Engine.DefaultVol = defaultVol
	}
	if c.Engine.CurvePoints == 0 {
		c.Engine.CurvePoints = defaultCurvePoints
	}
	if c.Scan.TopN == 0 {
		c.Scan.TopN = defaultTopN
	}
	if c.Scan.BodyWindow == 0 {
		c.Scan.BodyWindow = defaultBodyWindow
	}
	if c.Scan.MaxWingSteps == 0 {
		c.Scan.MaxWingSteps = defaultMaxWingSteps
	}
	if c.Scan.MaxEvaluations == 0 {
		c.Scan.MaxEvaluations = defaultMaxEvaluations
	}
	if c.Scan.Parallelism == 0 {
		c.Scan.Parallelism = defaultParallelism
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/strategies.json"
	}
}

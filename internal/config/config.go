package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSimilarityThreshold applies when the config does not set face.similarity_threshold.
const DefaultSimilarityThreshold = 0.6

// writeTimeoutMarginSec is the head room between the request deadline and the write deadline,
// left for encoding and flushing the response.
const writeTimeoutMarginSec = 10

// modelStages is the number of sequential model calls in one extraction.
const modelStages = 3

// Config holds the facedex service configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Face    FaceConfig    `yaml:"face"`
	Model   ModelConfig   `yaml:"model"`
	Batch   BatchConfig   `yaml:"batch"`
	CORS    CORSConfig    `yaml:"cors"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	Debug string `yaml:"debug"` // FACE_SERVICE_DEBUG, enabled only by "true" (any case)
}

// DebugEnabled reports whether debug mode is switched on.
func (c LoggingConfig) DebugEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(c.Debug), "true")
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	ReadTimeoutSec    int    `yaml:"read_timeout_sec"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"` // default: download + 3 model stages
	WriteTimeoutSec   int    `yaml:"write_timeout_sec"`   // default: request timeout + 10s
	ShutdownSec       int    `yaml:"shutdown_timeout_sec"`
	MaxBodyMB         int    `yaml:"max_body_mb"`
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RequestTimeout returns the deadline put on every face API request.
func (c HTTPConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// WriteTimeout returns the http.Server write deadline.
func (c HTTPConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}

// FaceConfig holds extraction and search parameters.
type FaceConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxImageSize        int     `yaml:"max_image_size"`   // pixels, longer side
	MaxImagePixels      int64   `yaml:"max_image_pixels"` // width*height accepted for decoding
	DownloadTimeoutSec  int     `yaml:"image_download_timeout_sec"`
	MaxImageBytes       int64   `yaml:"max_image_bytes"`
}

// DownloadTimeout returns the image download timeout.
func (c FaceConfig) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSec) * time.Second
}

// ModelConfig holds face model backend settings.
type ModelConfig struct {
	BaseURL               string `yaml:"base_url"`
	TimeoutSec            int    `yaml:"timeout_sec"`
	MaxConcurrency        int    `yaml:"max_concurrency"`
	BreakerFailures       int    `yaml:"breaker_failures"`
	BreakerOpenTimeoutSec int    `yaml:"breaker_open_timeout_sec"`
}

// Timeout returns the per-request model backend timeout.
func (c ModelConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// BatchConfig holds batch extraction limits.
type BatchConfig struct {
	MaxItems    int `yaml:"max_items"`
	Concurrency int `yaml:"concurrency"`
}

// CORSConfig holds the allowed browser origins.
type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins"` // comma-separated
}

// Origins splits AllowedOrigins into a trimmed list without empty entries.
func (c CORSConfig) Origins() []string {
	var out []string
	for o := range strings.SplitSeq(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Load reads configuration from a YAML file by environment name (local, dev, docker, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	cfg := Config{Face: FaceConfig{SimilarityThreshold: DefaultSimilarityThreshold}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
// SimilarityThreshold is seeded before decoding instead: zero is a legal threshold.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Host == "" {
		c.HTTP.Host = "0.0.0.0"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyMB <= 0 {
		c.HTTP.MaxBodyMB = 32
	}
	if c.Face.MaxImageSize <= 0 {
		c.Face.MaxImageSize = 1024
	}
	if c.Face.MaxImagePixels <= 0 {
		c.Face.MaxImagePixels = 50_000_000
	}
	if c.Face.DownloadTimeoutSec <= 0 {
		c.Face.DownloadTimeoutSec = 10
	}
	if c.Face.MaxImageBytes <= 0 {
		c.Face.MaxImageBytes = 20 << 20
	}
	if c.Model.TimeoutSec <= 0 {
		c.Model.TimeoutSec = 30
	}
	if c.Model.MaxConcurrency <= 0 {
		c.Model.MaxConcurrency = 4
	}
	if c.Model.BreakerFailures <= 0 {
		c.Model.BreakerFailures = 5
	}
	if c.Model.BreakerOpenTimeoutSec <= 0 {
		c.Model.BreakerOpenTimeoutSec = 30
	}
	if c.Batch.MaxItems <= 0 {
		c.Batch.MaxItems = 100
	}
	if c.Batch.Concurrency <= 0 {
		c.Batch.Concurrency = 1
	}
	if c.HTTP.RequestTimeoutSec <= 0 {
		c.HTTP.RequestTimeoutSec = c.Face.DownloadTimeoutSec + modelStages*c.Model.TimeoutSec
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = c.HTTP.RequestTimeoutSec + writeTimeoutMarginSec
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	t := c.Face.SimilarityThreshold
	if math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("face.similarity_threshold must be between 0 and 1, got %v", t)
	}
	if c.HTTP.WriteTimeoutSec <= c.HTTP.RequestTimeoutSec {
		return fmt.Errorf("http.write_timeout_sec (%d) must exceed http.request_timeout_sec (%d)",
			c.HTTP.WriteTimeoutSec, c.HTTP.RequestTimeoutSec)
	}
	if c.Model.BaseURL == "" {
		return fmt.Errorf("model.base_url is required")
	}
	if !strings.HasPrefix(c.Model.BaseURL, "http://") && !strings.HasPrefix(c.Model.BaseURL, "https://") {
		return fmt.Errorf("model.base_url must be an http(s) URL, got %q", c.Model.BaseURL)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

package jws

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Config represents JWS processor configuration
type Config struct {
	// Format selects the header JSON format for signed tokens
	Format Format `yaml:"format" json:"format"`

	// MaxTokenLength rejects longer tokens before decoding; zero disables the check
	MaxTokenLength int `yaml:"max_token_length" json:"max_token_length"`

	// AllowedAlgorithms restricts accepted "alg" values; empty allows every resolvable algorithm
	AllowedAlgorithms []string `yaml:"allowed_algorithms" json:"allowed_algorithms"`

	// CriticalParameters lists the "crit" extensions this application understands
	CriticalParameters []string `yaml:"critical_parameters" json:"critical_parameters"`

	// RequireNonce makes every verified token carry a fresh "nonce"
	RequireNonce bool `yaml:"require_nonce" json:"require_nonce"`

	// NonceTTL defines how long a used nonce is remembered
	NonceTTL time.Duration `yaml:"nonce_ttl" json:"nonce_ttl"`

	// SignRateLimit caps signatures per second; zero disables rate limiting
	SignRateLimit float64 `yaml:"sign_rate_limit" json:"sign_rate_limit"`

	// SignBurst is the number of signatures allowed at once above SignRateLimit
	SignBurst int `yaml:"sign_burst" json:"sign_burst"`

	// Logger receives processor events; nil discards them
	Logger *slog.Logger `yaml:"-" json:"-"`

	// Registerer receives the processor's Prometheus collectors; nil leaves them unregistered
	Registerer prometheus.Registerer `yaml:"-" json:"-"`
}

// DefaultConfig returns a secure default configuration for production use
func DefaultConfig() Config {
	return Config{
		Format:         FormatCompact,
		MaxTokenLength: 8192,
		NonceTTL:       10 * time.Minute,
		SignBurst:      1,
	}
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration on top of DefaultConfig and
// validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c == nil {
		return ErrInvalidConfig
	}

	if _, ok := formatNames[c.Format]; !ok {
		return fmt.Errorf("%w: unknown format %d", ErrInvalidConfig, int(c.Format))
	}

	if c.MaxTokenLength < 0 {
		return fmt.Errorf("%w: max token length cannot be negative", ErrInvalidConfig)
	}

	for _, name := range c.AllowedAlgorithms {
		if name == "" {
			return fmt.Errorf("%w: empty algorithm name in allowed algorithms", ErrInvalidConfig)
		}
	}

	for _, name := range c.CriticalParameters {
		if _, ok := registeredHeaders[name]; ok {
			return fmt.Errorf("%w: %q is defined by RFC 7515 and cannot be a critical extension", ErrInvalidConfig, name)
		}
		if name == "" {
			return fmt.Errorf("%w: empty critical parameter name", ErrInvalidConfig)
		}
	}

	if c.RequireNonce && c.NonceTTL <= 0 {
		return fmt.Errorf("%w: nonce TTL must be positive when nonces are required", ErrInvalidConfig)
	}

	if c.SignRateLimit < 0 {
		return fmt.Errorf("%w: sign rate limit cannot be negative", ErrInvalidConfig)
	}
	if c.SignRateLimit > 0 && c.SignBurst < 1 {
		return fmt.Errorf("%w: sign burst must be at least 1", ErrInvalidConfig)
	}

	return nil
}

func (c *Config) signLimiter() *rate.Limiter {
	if c.SignRateLimit == 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.SignRateLimit), c.SignBurst)
}

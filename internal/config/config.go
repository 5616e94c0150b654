package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/transport"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys double as flag names. Environment variables use the SQLAI_ prefix
// with dashes and dots turned into underscores, e.g. SQLAI_LOG_LEVEL.
const (
	KeyConfigFile     = "config"
	KeyLogLevel       = "log-level"
	KeyTimeout        = "timeout"
	KeyCAFile         = "ca-file"
	KeyLocalAddr      = "local-addr"
	KeyMaxOutputSize  = "max-output-size"
	KeyMaxErrorLength = "max-error-length"
	KeyListen         = "listen"
	keyBaseURLs       = "base-urls"

	EnvPrefix = "SQLAI"
)

// Config is the process-level configuration. Credentials are not part of
// it: they arrive with each call.
type Config struct {
	LogLevel       common.LogLevel
	Timeout        time.Duration
	CAFile         string
	LocalAddr      string
	MaxOutputSize  int
	MaxErrorLength int
	Listen         string
	// BaseURLs overrides provider endpoints by provider name.
	BaseURLs map[string]string
}

// Source resolves configuration on demand, so a watched config file can be
// re-read after it changes.
type Source struct {
	v         *viper.Viper
	providers []string
}

// NewSource layers, in increasing priority: defaults, the config file, .env
// and the environment, then any flags set on the command line. providers
// names the base-url keys to look up.
func NewSource(flags *pflag.FlagSet, providers []string) (*Source, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyLogLevel, "disabled")
	v.SetDefault(KeyTimeout, common.DefaultTimeout)
	v.SetDefault(KeyMaxOutputSize, common.DefaultMaxOutputSize)
	v.SetDefault(KeyMaxErrorLength, common.MaxErrorMessageLength)
	v.SetDefault(KeyListen, "127.0.0.1:8080")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}
	return &Source{v: v, providers: providers}, nil
}

// Load is NewSource followed by Config.
func Load(flags *pflag.FlagSet, providers []string) (*Config, error) {
	src, err := NewSource(flags, providers)
	if err != nil {
		return nil, err
	}
	return src.Config()
}

// Config resolves and validates the current values.
func (s *Source) Config() (*Config, error) {
	v := s.v
	level, err := common.ParseLogLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		LogLevel:       level,
		Timeout:        v.GetDuration(KeyTimeout),
		CAFile:         v.GetString(KeyCAFile),
		LocalAddr:      v.GetString(KeyLocalAddr),
		MaxOutputSize:  v.GetInt(KeyMaxOutputSize),
		MaxErrorLength: v.GetInt(KeyMaxErrorLength),
		Listen:         v.GetString(KeyListen),
		BaseURLs:       make(map[string]string),
	}
	for _, name := range s.providers {
		if u := v.GetString(keyBaseURLs + "." + name); u != "" {
			cfg.BaseURLs[name] = u
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Watch calls fn with the re-resolved configuration each time the config
// file is written. It reports false when no config file is in use.
func (s *Source) Watch(fn func(*Config, error)) bool {
	if s.v.ConfigFileUsed() == "" {
		return false
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		fn(s.Config())
	})
	s.v.WatchConfig()
	return true
}

// Validate checks ranges, the bind address and that every base URL
// override is well formed.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.MaxOutputSize < 1 {
		return fmt.Errorf("max output size must be at least 1, got %d", c.MaxOutputSize)
	}
	if c.MaxErrorLength < 1 {
		return fmt.Errorf("max error length must be at least 1, got %d", c.MaxErrorLength)
	}
	if c.LocalAddr != "" && net.ParseIP(c.LocalAddr) == nil {
		return fmt.Errorf("local address %q is not an IP address", c.LocalAddr)
	}
	for name, u := range c.BaseURLs {
		if _, err := transport.ParseBaseURL(u); err != nil {
			return fmt.Errorf("base url for %s: %w", name, err)
		}
	}
	return nil
}

// TransportOptions turns the TLS and bind settings into transport options.
func (c *Config) TransportOptions() []transport.Option {
	var opts []transport.Option
	if c.CAFile != "" {
		opts = append(opts, transport.WithCAFile(c.CAFile))
	}
	if c.LocalAddr != "" {
		opts = append(opts, transport.WithLocalAddr(c.LocalAddr))
	}
	return opts
}

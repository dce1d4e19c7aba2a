package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"

	DefaultBaseURL         = "https://generativelanguage.googleapis.com"
	DefaultModel           = "gemini-1.5-flash"
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 8000
	DefaultUpstreamTimeout = 2 * time.Minute
	DefaultMaxBodyBytes    = 20 << 20
	DefaultBackoffBase     = time.Second

	// EnvPrefix namespaces server settings; credentials keep their
	// unprefixed GEMINI_* names.
	EnvPrefix = "TONGUE"
)

// Keys used in config files and for flag binding.
const (
	KeyHost            = "host"
	KeyPort            = "port"
	KeyVerbose         = "verbose"
	KeyDebug           = "debug"
	KeyLogLevel        = "log_level"
	KeyAccessToken     = "access_token"
	KeyBackend         = "backend"
	KeyModel           = "model"
	KeyBaseURL         = "base_url"
	KeyUpstreamTimeout = "upstream_timeout"
	KeyMaxBodyBytes    = "max_body_bytes"
	KeyBackoffBase     = "backoff_base"
)

// ServerConfig holds all server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	Verbose         bool
	Debug           bool
	LogLevel        string
	AccessToken     string
	Backend         string
	Model           string
	BaseURL         string
	UpstreamTimeout time.Duration
	MaxBodyBytes    int64
	BackoffBase     time.Duration
	APIKeys         []string
}

// NewViper returns a viper instance with defaults and environment bindings.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyHost, DefaultHost)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyBackend, BackendGemini)
	v.SetDefault(KeyModel, DefaultModel)
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyUpstreamTimeout, DefaultUpstreamTimeout)
	v.SetDefault(KeyMaxBodyBytes, DefaultMaxBodyBytes)
	v.SetDefault(KeyBackoffBase, DefaultBackoffBase)

	// PORT is honored as a fallback for hosted environments.
	_ = v.BindEnv(KeyPort, EnvPrefix+"_PORT", "PORT")
	// GEMINI_MODEL mirrors the unprefixed credential variables.
	_ = v.BindEnv(KeyModel, EnvPrefix+"_MODEL", "GEMINI_MODEL")
	bindCredentialEnv(v)
	return v
}

// Load reads configFile (when non-empty) into v and builds a ServerConfig.
// Precedence: flags bound to v, environment, config file, defaults.
func Load(v *viper.Viper, configFile string) (*ServerConfig, error) {
	if v == nil {
		v = NewViper()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &ServerConfig{
		Host:            strings.TrimSpace(v.GetString(KeyHost)),
		Port:            v.GetInt(KeyPort),
		Verbose:         truthy(v.GetString(KeyVerbose)),
		Debug:           truthy(v.GetString(KeyDebug)),
		LogLevel:        strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		AccessToken:     strings.TrimSpace(v.GetString(KeyAccessToken)),
		Backend:         strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
		Model:           strings.TrimSpace(v.GetString(KeyModel)),
		BaseURL:         strings.TrimRight(strings.TrimSpace(v.GetString(KeyBaseURL)), "/"),
		UpstreamTimeout: v.GetDuration(KeyUpstreamTimeout),
		MaxBodyBytes:    v.GetInt64(KeyMaxBodyBytes),
		BackoffBase:     v.GetDuration(KeyBackoffBase),
		APIKeys:         LoadAPIKeys(v),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultFromEnv builds a ServerConfig from defaults and the environment only.
func DefaultFromEnv() (*ServerConfig, error) {
	return Load(NewViper(), "")
}

// Validate checks the settings that would otherwise fail at first use.
// An empty key list is not an error here; the dispatcher reports it per request.
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Backend {
	case BackendGemini, BackendOpenAI:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendGemini, BackendOpenAI)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("backoff_base must be positive, got %s", c.BackoffBase)
	}
	if c.UpstreamTimeout < 0 {
		return fmt.Errorf("upstream_timeout must not be negative, got %s", c.UpstreamTimeout)
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func truthy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

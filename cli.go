package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/n0madic/go-tongue/internal/config"
	"github.com/n0madic/go-tongue/internal/dispatch"
	"github.com/n0madic/go-tongue/internal/keypool"
	"github.com/n0madic/go-tongue/internal/upstream"
)

// app carries state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:           "go-tongue",
		Short:         "Tongue photo analysis service backed by Gemini",
		Long:          "go-tongue sends tongue photographs to a multimodal model and returns a structured traditional Chinese medicine report, rotating through a pool of API keys when the upstream is overloaded or rate limited.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (yaml, toml or json)")
	flags.String("backend", config.BackendGemini, "Upstream backend (gemini|openai)")
	flags.String("model", config.DefaultModel, "Model name")
	flags.String("base-url", config.DefaultBaseURL, "Upstream API base URL")
	flags.Duration("upstream-timeout", config.DefaultUpstreamTimeout, "Timeout for one upstream call")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.Bool("debug", false, "Dump raw HTTP traffic to stderr")
	flags.String("log-level", "info", "Log level (debug|info|warn|error)")
	a.bindFlags(rootCmd, true, map[string]string{
		config.KeyBackend:         "backend",
		config.KeyModel:           "model",
		config.KeyBaseURL:         "base-url",
		config.KeyUpstreamTimeout: "upstream-timeout",
		config.KeyVerbose:         "verbose",
		config.KeyDebug:           "debug",
		config.KeyLogLevel:        "log-level",
	})

	rootCmd.AddCommand(
		newServeCmd(a),
		newAnalyzeCmd(a),
		newKeysCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// bindFlags binds config keys to cmd's flags; only flags the user set
// override the environment and config file.
func (a *app) bindFlags(cmd *cobra.Command, persistent bool, keys map[string]string) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, name := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = a.v.BindPFlag(key, f)
		}
	}
}

// load reads the configuration and installs the default logger.
func (a *app) load(cmd *cobra.Command) (*config.ServerConfig, error) {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, err
	}
	setupLogging(cmd.ErrOrStderr(), cfg)
	return cfg, nil
}

func setupLogging(w io.Writer, cfg *config.ServerConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// newDispatcher wires the key pool and the configured backend. An empty key
// list yields a dispatcher that fails each request with ErrEmptyPool.
func newDispatcher(cfg *config.ServerConfig) (*dispatch.Dispatcher, error) {
	var pool *keypool.Pool
	if len(cfg.APIKeys) > 0 {
		var err error
		if pool, err = keypool.New(cfg.APIKeys); err != nil {
			return nil, err
		}
	} else {
		slog.Warn("no API keys configured; set GEMINI_API_KEYS or GEMINI_API_KEY")
	}

	backend, err := upstream.NewBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("build backend: %w", err)
	}

	d := dispatch.New(pool, backend)
	d.BackoffBase = cfg.BackoffBase
	return d, nil
}

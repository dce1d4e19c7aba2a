package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/n0madic/go-tongue/internal/config"
	"github.com/n0madic/go-tongue/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP analysis server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}
			d, err := newDispatcher(cfg)
			if err != nil {
				return err
			}
			srv := server.New(cfg, d)

			ctx := cmd.Context()
			go func() {
				<-ctx.Done()
				slog.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					slog.Error("shutdown failed", "error", err)
				}
			}()

			slog.Info("go-tongue starting",
				"addr", cfg.Addr(),
				"backend", cfg.Backend,
				"model", cfg.Model,
				"keys", len(cfg.APIKeys),
				"auth", cfg.AccessToken != "",
			)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("host", config.DefaultHost, "Bind host")
	flags.Int("port", config.DefaultPort, "Listen port")
	flags.String("access-token", "", "Require this bearer token on /api/ routes")
	flags.Int64("max-body-bytes", config.DefaultMaxBodyBytes, "Maximum request body size")
	a.bindFlags(cmd, false, map[string]string{
		config.KeyHost:         "host",
		config.KeyPort:         "port",
		config.KeyAccessToken:  "access-token",
		config.KeyMaxBodyBytes: "max-body-bytes",
	})
	return cmd
}

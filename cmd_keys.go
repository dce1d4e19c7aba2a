package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/n0madic/go-tongue/internal/keypool"
)

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the configured API keys (masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}
			pool, err := keypool.New(cfg.APIKeys)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "keys: %d\n", pool.Len())
			for i, masked := range pool.Masked() {
				fmt.Fprintf(out, "  [%d] %s\n", i, masked)
			}
			return nil
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/n0madic/go-tongue/internal/imagedata"
	"github.com/n0madic/go-tongue/internal/types"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Analyze one tongue photo and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			declared := mime.TypeByExtension(filepath.Ext(args[0]))
			req, err := types.NewAnalysisRequest(data, imagedata.DetectMIMEType(data, declared))
			if err != nil {
				return err
			}

			d, err := newDispatcher(cfg)
			if err != nil {
				return err
			}
			result, err := d.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(result)
			}
			return writeReport(out, result)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the raw JSON result")
	return cmd
}

// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/cinemap/config"
	"github.com/jcodagnone/cinemap/utils/httputils"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "cinemap",
	Short: "maps where the directors of the films you watched were born",
	Long: `
cinemap reads the films a Letterboxd member has watched, looks up each film's
director and their birthplace in TMDB, geocodes the birthplaces and writes a
document ready to be drawn on a map.
`,
	SilenceUsage: true,
}

var Version = "dev"

var configPath string

// flagKeys maps persistent and command flags to configuration keys. A flag
// only overrides the configuration when it was explicitly set.
var flagKeys = map[string]string{
	"trace-http":      "http.trace",
	"trace-http-body": "http.trace_body",
	"provider":        "geocoder.provider",
	"min-interval":    "geocoder.min_interval",
	"pause":           "tmdb.pause",
	"max-pages":       "letterboxd.max_pages",
	"page-delay":      "letterboxd.page_delay",
	"addr":            "server.addr",
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := map[string]any{}

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}

	cfg, err := config.Load(&config.Options{Path: configPath, Overrides: overrides})
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	return cfg, nil
}

func userAgent(cfg *config.Config) string {
	return fmt.Sprintf("%s/%s (+https://github.com/jcodagnone/cinemap)", cfg.HTTP.UserAgent, Version)
}

func httpClient(cfg *config.Config, ua string) *http.Client {
	return httputils.NewClient(&httputils.ClientOptions{
		UserAgent:           ua,
		EnableHTTPTrace:     cfg.HTTP.Trace,
		EnableHTTPBodyTrace: cfg.HTTP.TraceBody,
		Timeout:             cfg.HTTP.Timeout,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath,
		"config",
		"",
		"YAML configuration file (default: "+config.DefaultConfigFile+" if present)",
	)
	rootCmd.PersistentFlags().Bool("trace-http", false, "Trace HTTP requests and responses")
	rootCmd.PersistentFlags().Bool("trace-http-body", false, "Trace HTTP bodies too")
}

func Execute(version string) {
	Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

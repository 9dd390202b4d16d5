// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/cinemap/letterboxd"
)

var (
	runOpts      = &enrichOptions{}
	runFilmsPath string
)

var runCmd = &cobra.Command{
	Use:   "run <user>",
	Short: "Scrapes a Letterboxd member and enriches their films in one go",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		films, err := scrapeFilms(cmd.Context(), cfg, args[0])
		if err != nil {
			return err
		}

		if runFilmsPath != "" {
			if err := letterboxd.WriteFilmList(runFilmsPath, films); err != nil {
				return fmt.Errorf("writing film list: %w", err)
			}
		}

		return enrichFilms(cmd.Context(), cfg, runOpts, args[0], films)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runFilmsPath, "films", "", "Also keep the scraped film list in this file")
	addScrapeFlags(runCmd)
	addEnrichFlags(runCmd, runOpts)
}

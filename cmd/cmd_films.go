// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/cinemap/config"
	"github.com/jcodagnone/cinemap/letterboxd"
)

var filmsOutput string

var filmsCmd = &cobra.Command{
	Use:   "films <user>",
	Short: "Scrapes the films a Letterboxd member has watched into a film list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		films, err := scrapeFilms(cmd.Context(), cfg, args[0])
		if err != nil {
			return err
		}

		if err := letterboxd.WriteFilmList(filmsOutput, films); err != nil {
			return fmt.Errorf("writing film list: %w", err)
		}

		log.Printf("✅ Wrote %d films to %s", len(films), filmsOutput)

		return nil
	},
}

func scrapeFilms(ctx context.Context, cfg *config.Config, user string) ([]letterboxd.Film, error) {
	scraper := letterboxd.NewScraper(&letterboxd.ScraperOptions{
		BaseURL:   cfg.Letterboxd.BaseURL,
		PageDelay: cfg.Letterboxd.PageDelay,
		MaxPages:  cfg.Letterboxd.MaxPages,
	}, httpClient(cfg, userAgent(cfg)))

	films, err := scraper.Films(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("scraping %s: %w", user, err)
	}

	log.Printf(
		"Scrape metrics - %d films across %d pages",
		scraper.Metrics.Films,
		scraper.Metrics.Pages,
	)

	return films, nil
}

func addScrapeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-pages", 0, "Stop after this many pages (0 = all)")
	cmd.Flags().Duration("page-delay", 0, "Pause between two pages (default from configuration, 1s)")
}

func init() {
	rootCmd.AddCommand(filmsCmd)
	filmsCmd.Flags().StringVarP(&filmsOutput, "output", "o", "films.txt", "Film list to write (.csv or text)")
	addScrapeFlags(filmsCmd)
}

// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/cinemap/atlas"
	"github.com/jcodagnone/cinemap/mapview"
)

var (
	serveInput  string
	serveDbPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the places on a map",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var places []atlas.PlaceOutput
		if serveDbPath != "" {
			places, err = latestPlaces(serveDbPath)
		} else {
			places, err = atlas.ReadFile(serveInput)
		}

		if err != nil {
			return err
		}

		fmt.Printf("🗺️  Serving %d places on http://%s\n", len(places), cfg.Server.Addr)

		return mapview.NewServer(places).Run(cfg.Server.Addr)
	},
}

func latestPlaces(path string) ([]atlas.PlaceOutput, error) {
	db, repo, err := openStore(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	run, err := repo.LatestRun()
	if err != nil {
		return nil, err
	}

	log.Printf("Loading run %d (%s, %s)", run.ID, run.Source, run.FinishedAt.Format("2006-01-02 15:04"))

	return repo.ListPlaces(run.ID)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveInput, "input", "i", "places.json", "Places document to serve")
	serveCmd.Flags().StringVar(&serveDbPath, "db", "", "Serve the latest run stored in this DuckDB file instead")
	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
}

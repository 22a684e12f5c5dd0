package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/osm"
)

var loadFacilitiesTypes []string

var loadFacilitiesCmd = &cobra.Command{
	Use:   "load-facilities",
	Short: "Fetch generic facilities from OpenStreetMap",
	Long:  "Queries Overpass for facilities inside the bounding box of the stored statistical areas, assigns each to its containing area and upserts them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reg, err := loadRegistry(ctx, st)
		if err != nil {
			return err
		}

		fetcher := osm.NewFetcher(cfg.Overpass.Endpoint, seconds(cfg.Overpass.TimeoutSecs), cfg.Overpass.MaxParallel)
		facilities, err := fetcher.Facilities(ctx, cfg.City.Code, reg.Bounds(), loadFacilitiesTypes)
		if err != nil {
			return err
		}

		rs := make([]model.Resource, len(facilities))
		for i, f := range facilities {
			rs[i] = f
		}
		n, err := assignAndStore(ctx, st, model.KindFacility, rs, true)
		if err != nil {
			return err
		}

		zap.L().Info("facilities loaded",
			zap.Int("fetched", len(facilities)),
			zap.Int64("upserted", n),
		)
		return nil
	},
}

func init() {
	loadFacilitiesCmd.Flags().StringSliceVar(&loadFacilitiesTypes, "types", nil, "facility types to fetch, comma separated (default a built-in shelter-oriented list)")
	rootCmd.AddCommand(loadFacilitiesCmd)
}

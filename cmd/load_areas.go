package main

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/registry"
	"github.com/citystrata/citystrata/internal/shapefile"
)

var (
	loadAreasFile      string
	loadAreasCityField string
	loadAreasAreaField string
	loadAreasSource    string
)

var loadAreasCmd = &cobra.Command{
	Use:   "load-areas",
	Short: "Import statistical area polygons",
	Long:  "Reads statistical areas of the configured city from a shapefile or GeoJSON file, validates them and upserts them into the store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		areas, err := readAreas(loadAreasFile)
		if err != nil {
			return err
		}
		if len(areas) == 0 {
			return eris.Errorf("no statistical areas of city %d in %s", cfg.City.Code, loadAreasFile)
		}

		for i := range areas {
			switch {
			case loadAreasSource != "":
				areas[i].Source = loadAreasSource
			case areas[i].Source == "":
				areas[i].Source = filepath.Base(loadAreasFile)
			}
		}

		// Fails on duplicate codes and bad geometry before anything is written.
		reg, err := registry.New(cfg.City.Code, areas)
		if err != nil {
			return eris.Wrap(err, "load-areas: validate")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.UpsertAreas(ctx, reg.Areas())
		if err != nil {
			return eris.Wrap(err, "load-areas: upsert")
		}

		b := reg.Bounds()
		zap.L().Info("statistical areas loaded",
			zap.String("file", loadAreasFile),
			zap.Int("areas", reg.Len()),
			zap.Int64("upserted", n),
			zap.Float64s("bounds", []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}),
		)
		return nil
	},
}

func readAreas(path string) ([]model.StatisticalArea, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return shapefile.ReadAreas(path, shapefile.Options{
			CityCode:  cfg.City.Code,
			CityField: loadAreasCityField,
			AreaField: loadAreasAreaField,
		})
	case ".geojson", ".json":
		return registry.LoadAreasFromFile(path, cfg.City.Code)
	default:
		return nil, eris.Wrapf(model.ErrInvalidParameter, "load-areas: unsupported file type %q", filepath.Ext(path))
	}
}

func init() {
	loadAreasCmd.Flags().StringVar(&loadAreasFile, "file", "", "shapefile (.shp) or GeoJSON file (required)")
	loadAreasCmd.Flags().StringVar(&loadAreasCityField, "city-field", shapefile.DefaultCityField, "shapefile attribute holding the city code")
	loadAreasCmd.Flags().StringVar(&loadAreasAreaField, "area-field", shapefile.DefaultAreaField, "shapefile attribute holding the area code")
	loadAreasCmd.Flags().StringVar(&loadAreasSource, "source", "", "source tag stored with each area (default set by the file reader)")
	_ = loadAreasCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(loadAreasCmd)
}

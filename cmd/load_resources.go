package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/geospatial"
	"github.com/citystrata/citystrata/internal/ingest"
	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/spatial"
)

var (
	loadResourcesKind     string
	loadResourcesFile     string
	loadResourcesSheet    string
	loadResourcesSource   string
	loadResourcesReassign bool
)

var loadResourcesCmd = &cobra.Command{
	Use:   "load-resources",
	Short: "Import resources of one kind from CSV or XLSX",
	Long: `Reads lodging, institutions, food venues, community centers or facilities from a CSV or XLSX file.
Rows of other cities or without a usable location are skipped and reported. Resources without an area
code in the file get the code of the area containing them; --reassign recomputes every code.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		kind, err := model.ParseKind(loadResourcesKind)
		if err != nil {
			return err
		}
		source := loadResourcesSource
		if source == "" {
			source = defaultSource(loadResourcesKind, kind)
		}

		res, err := ingest.ReadResources(ctx, loadResourcesFile, ingest.Options{
			Kind:     kind,
			CityCode: cfg.City.Code,
			Source:   source,
			Sheet:    loadResourcesSheet,
		})
		if err != nil {
			return err
		}
		for _, s := range res.Skipped {
			zap.L().Debug("row skipped", zap.Int("row", s.Row), zap.String("reason", s.Reason))
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := assignAndStore(ctx, st, kind, res.Resources, loadResourcesReassign)
		if err != nil {
			return err
		}

		zap.L().Info("resources loaded",
			zap.String("kind", string(kind)),
			zap.String("file", loadResourcesFile),
			zap.Int("read", len(res.Resources)),
			zap.Int("skipped", len(res.Skipped)),
			zap.Int64("upserted", n),
		)
		return nil
	},
}

// defaultSource tags lodging and venue rows with the alias the kind was
// given as, e.g. "hotel" or "coffee_shop".
func defaultSource(alias string, kind model.Kind) string {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if alias == string(kind) {
		return ""
	}
	return alias
}

// assignAndStore fills missing area codes by point-in-polygon, or replaces
// all of them when reassign is set, then upserts rs.
func assignAndStore(ctx context.Context, st geospatial.Store, kind model.Kind, rs []model.Resource, reassign bool) (int64, error) {
	if len(rs) == 0 {
		return 0, nil
	}
	reg, err := loadRegistry(ctx, st)
	if err != nil {
		return 0, err
	}
	ix := spatial.NewIndex(reg, nil, cfg.Search.GridCellDegrees)
	out, stats := assignAreas(ix, rs, reassign)

	zap.L().Info("area assignment",
		zap.String("kind", string(kind)),
		zap.Int("kept", stats.kept),
		zap.Int("assigned", stats.assigned),
		zap.Int("outside", stats.outside),
		zap.Int("disagreements", stats.disagreements),
	)

	n, err := st.UpsertResources(ctx, kind, out)
	if err != nil {
		return 0, eris.Wrapf(err, "upsert %s", kind)
	}
	return n, nil
}

type assignStats struct {
	kept          int
	assigned      int
	outside       int
	disagreements int
}

func assignAreas(ix *spatial.Index, rs []model.Resource, reassign bool) ([]model.Resource, assignStats) {
	var stats assignStats
	out := make([]model.Resource, 0, len(rs))
	for _, r := range rs {
		base := r.Base()
		code, ok := ix.Assign(base.Location)
		var computed *int
		if ok {
			computed = &code
		}

		if base.AreaCode != nil && (computed == nil || *computed != *base.AreaCode) {
			stats.disagreements++
		}
		switch {
		case base.AreaCode != nil && !reassign:
			stats.kept++
			out = append(out, r)
			continue
		case computed == nil:
			stats.outside++
		default:
			stats.assigned++
		}
		out = append(out, model.WithAreaCode(r, computed))
	}
	return out, stats
}

func init() {
	loadResourcesCmd.Flags().StringVar(&loadResourcesKind, "kind", "", "resource kind or alias, e.g. lodging, airbnb, hotel, institution, restaurant, coffee_shop, matnas, facility (required)")
	loadResourcesCmd.Flags().StringVar(&loadResourcesFile, "file", "", "CSV or XLSX file (required)")
	loadResourcesCmd.Flags().StringVar(&loadResourcesSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	loadResourcesCmd.Flags().StringVar(&loadResourcesSource, "source", "", "lodging or venue type for rows without one (default the kind alias)")
	loadResourcesCmd.Flags().BoolVar(&loadResourcesReassign, "reassign", false, "recompute area codes even when the file has them")
	_ = loadResourcesCmd.MarkFlagRequired("kind")
	_ = loadResourcesCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(loadResourcesCmd)
}

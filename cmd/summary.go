package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/citystrata/citystrata/internal/aggregate"
	"github.com/citystrata/citystrata/internal/model"
)

var (
	summaryArea int
	summaryJSON bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print per-area resource counts",
	Long:  "Prints institution, lodging, food venue, community center and facility counts with lodging capacity for every area, or for one area with --area.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := loadSnapshot(ctx, st)
		if err != nil {
			return err
		}

		var summaries []model.AreaSummary
		if cmd.Flags().Changed("area") {
			s, err := aggregate.Summarize(snap.Registry, snap.Catalog, summaryArea)
			if err != nil {
				return err
			}
			summaries = []model.AreaSummary{s}
		} else {
			summaries = aggregate.SummarizeAll(snap.Registry, snap.Catalog)
		}

		if summaryJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(summaries), "summary: encode")
		}
		printSummaries(cmd.OutOrStdout(), summaries)
		return nil
	},
}

func printSummaries(out io.Writer, summaries []model.AreaSummary) {
	fmt.Fprintf(out, "%-8s %12s %6s %8s %9s %6s %7s %10s\n",
		"area", "area_m2", "inst", "lodging", "capacity", "food", "matnas", "facilities")
	var total model.AreaSummary
	for _, s := range summaries {
		fmt.Fprintf(out, "%-8d %12.0f %6d %8d %9d %6d %7d %10d\n",
			s.AreaCode, s.AreaM2, s.InstitutionsCount, s.LodgingCount, s.LodgingTotalCapacity,
			s.FoodVenueCount, s.CommunityCenterCount, s.FacilityCount)
		total.AreaM2 += s.AreaM2
		total.InstitutionsCount += s.InstitutionsCount
		total.LodgingCount += s.LodgingCount
		total.LodgingTotalCapacity += s.LodgingTotalCapacity
		total.FoodVenueCount += s.FoodVenueCount
		total.CommunityCenterCount += s.CommunityCenterCount
		total.FacilityCount += s.FacilityCount
	}
	if len(summaries) > 1 {
		fmt.Fprintf(out, "%-8s %12.0f %6d %8d %9d %6d %7d %10d\n",
			"total", total.AreaM2, total.InstitutionsCount, total.LodgingCount, total.LodgingTotalCapacity,
			total.FoodVenueCount, total.CommunityCenterCount, total.FacilityCount)
	}
}

func init() {
	summaryCmd.Flags().IntVar(&summaryArea, "area", 0, "summarize a single area code")
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print JSON")
	rootCmd.AddCommand(summaryCmd)
}

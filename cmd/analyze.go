package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/citystrata/citystrata/internal/evacuation"
	"github.com/citystrata/citystrata/internal/model"
)

var (
	analyzeEvacuate  []int
	analyzeResources []int
	analyzeScenario  string
	analyzeFile      string
	analyzeXLSX      string
	analyzeJSON      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an evacuation capacity analysis",
	Long: `Estimates the population of the evacuated areas from their institutions and compares it with the
lodging capacity of the resource areas, or of the evacuated areas when none are given. A request can
also be read from a YAML file; flags override its fields.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		req, err := analyzeRequest(cmd)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := loadSnapshot(ctx, st)
		if err != nil {
			return err
		}

		a, err := evacuation.Analyze(snap.Registry, snap.Catalog, req)
		if err != nil {
			return err
		}

		if analyzeXLSX != "" {
			if err := exportAnalysis(a, analyzeXLSX); err != nil {
				return err
			}
			zap.L().Info("analysis exported", zap.String("path", analyzeXLSX))
		}

		if analyzeJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(a), "analyze: encode")
		}
		printAnalysis(cmd.OutOrStdout(), a)
		return nil
	},
}

// analyzeRequest reads --file when given, then applies any flags set.
func analyzeRequest(cmd *cobra.Command) (evacuation.Request, error) {
	var req evacuation.Request
	if analyzeFile != "" {
		data, err := os.ReadFile(analyzeFile)
		if err != nil {
			return req, eris.Wrapf(err, "analyze: read %s", analyzeFile)
		}
		if err := yaml.Unmarshal(data, &req); err != nil {
			return req, eris.Wrapf(model.ErrInvalidParameter, "analyze: parse %s: %v", analyzeFile, err)
		}
	}
	flags := cmd.Flags()
	if flags.Changed("evacuate") {
		req.EvacuateAreas = analyzeEvacuate
	}
	if flags.Changed("resources") {
		req.ResourceAreas = analyzeResources
	}
	if flags.Changed("scenario") {
		req.Scenario = analyzeScenario
	}
	if len(req.EvacuateAreas) == 0 {
		return req, eris.Wrap(model.ErrInvalidParameter, "analyze: --evacuate or a request file with evacuate_areas is required")
	}
	return req, nil
}

func printAnalysis(out io.Writer, a *model.EvacuationAnalysis) {
	fmt.Fprintln(out, "=== Evacuation Analysis ===")
	fmt.Fprintf(out, "Scenario:          %s\n", a.Scenario)
	fmt.Fprintf(out, "Evacuate areas:    %v\n", a.EvacuateAreas)
	if len(a.ResourceAreas) > 0 {
		fmt.Fprintf(out, "Resource areas:    %v\n", a.ResourceAreas)
	}
	fmt.Fprintf(out, "Total need:        %d\n", a.TotalNeed)
	fmt.Fprintf(out, "Total capacity:    %d\n", a.TotalCapacity)
	fmt.Fprintf(out, "Capacity deficit:  %d\n", a.CapacityDeficit)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Need by area:")
	for _, n := range a.NeedByArea {
		fmt.Fprintf(out, "  %-8d %4d institutions  %6d people\n", n.AreaCode, n.InstitutionsCount, n.TotalEstimatedPopulation)
	}
	fmt.Fprintln(out, "Capacity by area:")
	for _, c := range a.CapacityByArea {
		fmt.Fprintf(out, "  %-8d %4d lodging       %6d beds\n", c.AreaCode, c.LodgingCount, c.TotalCapacity)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Recommendations:")
	for _, r := range a.Recommendations {
		fmt.Fprintf(out, "  - %s\n", r)
	}
}

func init() {
	analyzeCmd.Flags().IntSliceVar(&analyzeEvacuate, "evacuate", nil, "area codes to evacuate, comma separated")
	analyzeCmd.Flags().IntSliceVar(&analyzeResources, "resources", nil, "area codes whose lodging receives evacuees (default the evacuated areas)")
	analyzeCmd.Flags().StringVar(&analyzeScenario, "scenario", "", "scenario label echoed in the result (default "+evacuation.DefaultScenario+")")
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "YAML request file with evacuate_areas, resource_areas and scenario")
	analyzeCmd.Flags().StringVar(&analyzeXLSX, "xlsx", "", "also write the analysis to this XLSX workbook")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print JSON")
	rootCmd.AddCommand(analyzeCmd)
}

package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/spatial"
)

var assignDryRun bool

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Recompute and store the area of every resource",
	Long:  "Runs point-in-polygon assignment for every stored resource and writes the computed area codes back. Resources outside every area get no code.",
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

		byKind := spatial.GroupByKind(snap.Index.AssignAll())
		out := cmd.OutOrStdout()
		for _, kind := range model.Kinds {
			as := byKind[kind]
			unassigned := 0
			for _, a := range as {
				if a.AreaCode == nil {
					unassigned++
				}
			}
			fmt.Fprintf(out, "  %-18s %6d resources  %6d outside every area\n", kind, len(as), unassigned)

			if assignDryRun || len(as) == 0 {
				continue
			}
			n, err := st.UpdateAssignments(ctx, kind, as)
			if err != nil {
				return eris.Wrapf(err, "assign %s", kind)
			}
			zap.L().Info("assignments stored", zap.String("kind", string(kind)), zap.Int64("updated", n))
		}
		if assignDryRun {
			fmt.Fprintln(out, "dry run: nothing written")
		}
		return nil
	},
}

func init() {
	assignCmd.Flags().BoolVar(&assignDryRun, "dry-run", false, "compute assignments without storing them")
	rootCmd.AddCommand(assignCmd)
}

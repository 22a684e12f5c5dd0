package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/citystrata/citystrata/internal/spatial"
)

var (
	verifyFailOnInconsistency bool
	verifyJSON                bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare stored area codes with point-in-polygon results",
	Long:  "Reports resources whose stored area code differs from the area containing them, and locations claimed by more than one area.",
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

		rep := snap.Index.Verify()
		out := cmd.OutOrStdout()
		if verifyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return eris.Wrap(err, "verify: encode report")
			}
		} else {
			printReport(cmd, rep)
		}

		if verifyFailOnInconsistency && !rep.Consistent() {
			return eris.Errorf("%d of %d resources have inconsistent area codes", len(rep.Inconsistencies), rep.Checked)
		}
		return nil
	},
}

func printReport(cmd *cobra.Command, rep spatial.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Area Assignment Verification ===")
	fmt.Fprintf(out, "Checked:          %d\n", rep.Checked)
	fmt.Fprintf(out, "Inconsistencies:  %d\n", len(rep.Inconsistencies))
	fmt.Fprintf(out, "Overlaps:         %d\n", len(rep.Overlaps))

	if len(rep.Inconsistencies) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Inconsistent resources:")
		for _, in := range rep.Inconsistencies {
			fmt.Fprintf(out, "  %-18s %-40s stored=%s computed=%s\n", in.Kind, in.ID, codeString(in.Stored), codeString(in.Computed))
		}
	}
	if len(rep.Overlaps) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Overlapping areas:")
		for _, o := range rep.Overlaps {
			fmt.Fprintf(out, "  %-18s %-40s areas=%v\n", o.Kind, o.ID, o.AreaCodes)
		}
	}
}

func codeString(code *int) string {
	if code == nil {
		return "none"
	}
	return fmt.Sprint(*code)
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyFailOnInconsistency, "fail-on-inconsistency", false, "exit non-zero when any stored code disagrees")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(verifyCmd)
}

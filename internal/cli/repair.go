package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRepairCmd fixes orphaned and stale menu entries.
func NewRepairCmd(deps *Deps) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "prune orphan child entries and re-link parented pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, changed, err := deps.Engine.Repair(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !changed {
				fmt.Fprintln(out, "nothing to repair")
				return nil
			}
			verb := "repaired"
			if dryRun {
				verb = "would repair"
			}
			fmt.Fprintf(out, "%s: %d orphan child entries, %d unlinked pages, %d stale titles\n",
				verb, len(report.OrphanChildren), len(report.UnlinkedPages), len(report.StaleTitles))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}

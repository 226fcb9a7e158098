package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"onfawiki/internal/tools/linkgraph"
	"onfawiki/internal/wiki"
)

// ErrUnhealthy is returned by check --strict when problems were found.
var ErrUnhealthy = errors.New("document has consistency problems")

// CheckResult is what check reports.
type CheckResult struct {
	Backend       string           `json:"backend,omitempty"`
	UpdatedAt     *time.Time       `json:"updatedAt,omitempty"`
	Report        wiki.Report      `json:"report"`
	DanglingLinks []linkgraph.Edge `json:"danglingLinks"`
}

// Healthy reports whether nothing needs attention.
func (r CheckResult) Healthy() bool {
	return r.Report.Healthy() && len(r.DanglingLinks) == 0
}

// NewCheckCmd inspects the stored document without changing it.
func NewCheckCmd(deps *Deps) *cobra.Command {
	var (
		asJSON bool
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "report consistency problems in the wiki document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			report, err := deps.Engine.Inspect(ctx)
			if err != nil {
				return err
			}
			doc, err := deps.Engine.Document(ctx)
			if err != nil {
				return err
			}

			res := CheckResult{Report: report, DanglingLinks: linkgraph.Build(doc).Dangling}
			if res.DanglingLinks == nil {
				res.DanglingLinks = []linkgraph.Edge{}
			}
			gw := deps.Engine.Cache().Gateway()
			if k, ok := gw.(interface{ Kind() string }); ok {
				res.Backend = k.Kind()
			}
			if st, ok := gw.(wiki.Stater); ok {
				if at, err := st.UpdatedAt(ctx); err == nil && !at.IsZero() {
					res.UpdatedAt = &at
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				printCheck(cmd.OutOrStdout(), res)
			}
			if strict && !res.Healthy() {
				return ErrUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when problems are found")
	return cmd
}

func printCheck(w io.Writer, res CheckResult) {
	r := res.Report
	if res.Backend != "" {
		fmt.Fprintf(w, "backend: %s\n", res.Backend)
	}
	if res.UpdatedAt != nil {
		fmt.Fprintf(w, "updated: %s\n", res.UpdatedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "menus: %d\npages: %d\n", r.Menus, r.Pages)
	if len(r.SynthesizedMenus) > 0 {
		fmt.Fprintf(w, "synthesized menus: %d\n", len(r.SynthesizedMenus))
	}
	for _, c := range r.OrphanChildren {
		fmt.Fprintf(w, "orphan child entry: %s under %s\n", c.ChildID, c.ParentID)
	}
	for _, c := range r.UnlinkedPages {
		fmt.Fprintf(w, "page not listed under its parent: %s under %s\n", c.ChildID, c.ParentID)
	}
	for _, c := range r.StaleTitles {
		fmt.Fprintf(w, "stale child title: %s under %s\n", c.ChildID, c.ParentID)
	}
	for _, id := range r.DanglingParents {
		fmt.Fprintf(w, "page with unknown parent: %s\n", id)
	}
	for _, id := range r.DuplicatePageIDs {
		fmt.Fprintf(w, "duplicate page id: %s\n", id)
	}
	for _, id := range r.DuplicateMenuIDs {
		fmt.Fprintf(w, "duplicate menu id: %s\n", id)
	}
	for _, e := range res.DanglingLinks {
		fmt.Fprintf(w, "dangling link: %s -> %s\n", e.Source, e.Target)
	}
	if res.Healthy() {
		fmt.Fprintln(w, "ok")
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"onfawiki/internal/i18n"
	"onfawiki/internal/wiki"
)

// NewTranslateCmd builds a translation table for one language. Without a
// Groq key the table holds the source text unchanged.
func NewTranslateCmd(deps *Deps) *cobra.Command {
	var (
		lang string
		out  string
	)
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "build a translation table for the wiki content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lang == "" {
				return &wiki.ValidationError{Field: "lang", Reason: "must not be empty"}
			}
			ctx := cmd.Context()
			doc, err := deps.Engine.Document(ctx)
			if err != nil {
				return err
			}
			tr := i18n.NewTranslator(deps.Config.GroqAPIKey, deps.HTTPClient, deps.Log)
			table, err := tr.TranslateDocument(ctx, lang, doc)
			if err != nil {
				return err
			}

			dir := out
			if dir == "" {
				dir = deps.Config.TranslationsDir
			}
			if dir == "" {
				raw, err := yaml.Marshal(map[string]string(table))
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			}
			path, err := i18n.NewCatalog(dir).Save(lang, table)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d entries to %s\n", len(table), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "en", "target language code")
	cmd.Flags().StringVar(&out, "out", "", "translations directory (defaults to WIKI_TRANSLATIONS_DIR, stdout when unset)")
	return cmd
}

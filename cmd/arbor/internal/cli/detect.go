package cli

import (
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/arbor/cmd/arbor/internal/detect"
	"github.com/albertocavalcante/arbor/pkg/treesitter"
)

var detectCmd = &cobra.Command{
	Use:   "detect [DIR]",
	Short: "List the languages found under a directory",
	Long: `Walks DIR (default: the current directory) and lists every language
with at least one file, together with the first available backend that
can parse it. Languages are recognised by file extension, using the
languages.extensions setting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	langs, err := detect.Languages(root, cfg.LanguageForPath)
	if err != nil {
		return err
	}

	tbl := newTable(cmd.OutOrStdout())
	tbl.AppendHeader(table.Row{"Language", "Backend"})
	for _, lang := range langs {
		tbl.AppendRow(table.Row{lang, backendFor(treesitter.Language(lang))})
	}
	tbl.Render()
	return nil
}

// backendFor names the first available backend that parses lang, or "-".
func backendFor(lang treesitter.Language) string {
	for _, typ := range treesitter.AvailableBackends() {
		if slices.Contains(treesitter.GetBackendInfo(typ).SupportedLanguages, lang) {
			return string(typ)
		}
	}
	return "-"
}

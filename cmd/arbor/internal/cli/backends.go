package cli

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/arbor/pkg/treesitter"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the parsing backends available in this build",
	Long: `Lists the backends this binary can use and the languages each parses.
The CGO backend is only available when arbor was built with CGO_ENABLED=1.

Select one with --backend, the parser.backend setting, or ` + treesitter.EnvVarBackend + `.`,
	Args: cobra.NoArgs,
	RunE: runBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}

func runBackends(cmd *cobra.Command, _ []string) error {
	tbl := newTable(cmd.OutOrStdout())
	tbl.AppendHeader(table.Row{"Backend", "Description", "Languages"})
	for _, typ := range treesitter.AvailableBackends() {
		info := treesitter.GetBackendInfo(typ)
		langs := make([]string, len(info.SupportedLanguages))
		for i, l := range info.SupportedLanguages {
			langs[i] = string(l)
		}
		tbl.AppendRow(table.Row{typ, info.Description, strings.Join(langs, ", ")})
	}
	tbl.Render()
	return nil
}

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mcbedrock-downloader/catalog"
)

var listHelp = `
List the versions of one type in catalog order, or every version sorted
newest first with --all.
`

func newListCmd(a *app) *cobra.Command {
	var (
		typeName string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available versions",
		Long:  listHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			versionType, err := catalog.ParseVersionType(typeName)
			if err != nil {
				return err
			}

			session := a.newSession()
			defer session.Close()

			vl, err := a.loadCatalog(cmd.Context(), session)
			if err != nil {
				return err
			}

			if all {
				fmt.Fprintln(a.env.Out, "\nAll versions:")
				writeVersionTable(a.env.Out, vl.Sorted(true))
				return nil
			}

			fmt.Fprintf(a.env.Out, "\n%s versions:\n", versionType)
			writeVersionTable(a.env.Out, vl.ByType(versionType))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&typeName, "type", "t", "release", "version type: release, beta or preview")
	f.BoolVarP(&all, "all", "a", false, "list every version, newest first")

	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search versions by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := a.newSession()
			defer session.Close()

			vl, err := a.loadCatalog(cmd.Context(), session)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.env.Out, "\nSearch results for '%s':\n", args[0])
			writeVersionTable(a.env.Out, vl.Search(args[0]))
			return nil
		},
	}
}

func writeVersionTable(out io.Writer, versions []catalog.Version) {
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, v := range versions {
		fmt.Fprintf(out, "%-30s %-10s %s\n", v.Name, v.TypeName, v.UUID)
	}
}

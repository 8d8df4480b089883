package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mcbedrock-downloader/transport"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		// Printing the version needs no configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.env.Out, "mcbedrock-downloader v%s\n", Version)
			fmt.Fprintf(a.env.Out, "User-Agent: %s\n", transport.UserAgent)
		},
	}
}

package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds a `version` subcommand printing the
// binary name and build metadata.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long: `Print the pool-guard release this binary belongs to, with the commit hash and
build timestamp injected at build time. All pool-guard binaries of one release
report the same line, which helps when the server, console and simulator run
on different machines.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), For(cmd.Root().Name()))
		},
	})
}

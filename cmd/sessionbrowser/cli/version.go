package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

type VersionInfo struct {
	Version string
	Commit  string
}

var versionInfo VersionInfo

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sessionbrowser %s (%s) %s %s/%s\n",
				versionInfo.Version, versionInfo.Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

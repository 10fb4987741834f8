package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crossgaze/crossgaze/pkg/runtime"
)

func VersionCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Long:  `Print version info`,
		Example: `  crossgaze version
  crossgaze version --help`,
	}

	command.RunE = func(cmd *cobra.Command, args []string) error {
		fmt.Printf("crossgaze version: %s commit: %s built at: %s\n", runtime.Version, runtime.GitCommit, runtime.Timestamp)
		return nil
	}

	return command
}

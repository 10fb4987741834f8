package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crossgaze/crossgaze/cmd"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "crossgaze",
		Short: "A CLI gazelle profile-list search tool",
		Long: `A CLI application that caches gazelle tracker profile lists and searches
them for edition-equivalent torrents.
`,
	}

	// Parse persistent flags
	rootCmd.PersistentFlags().StringVar(&cmd.FlagConfigFolder, "config-dir", cmd.FlagConfigFolder, "Config folder")
	rootCmd.PersistentFlags().StringVarP(&cmd.FlagConfigFile, "config", "c", cmd.FlagConfigFile, "Config file")
	rootCmd.PersistentFlags().StringVarP(&cmd.FlagLogFile, "log", "l", cmd.FlagLogFile, "Log file")
	rootCmd.PersistentFlags().CountVarP(&cmd.FlagLogLevel, "verbose", "v", "Verbose level")

	rootCmd.AddCommand(cmd.SearchCommand())
	rootCmd.AddCommand(cmd.UpdateCommand())
	rootCmd.AddCommand(cmd.VersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/crossgaze/crossgaze/pkg/runtime"
)

func UpdateCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "update",
		Short: "Update to latest version",
		Long:  `This command can be used to self-update to the latest version.`,
	}

	command.RunE = func(cmd *cobra.Command, args []string) error {
		fmt.Println("Checking for the latest version...")

		latest, found, err := selfupdate.DetectLatest(cmd.Context(), selfupdate.ParseSlug("crossgaze/crossgaze"))
		if err != nil {
			return fmt.Errorf("detect latest version: %w", err)
		}

		if !found || latest.LessOrEqual(runtime.Version) {
			fmt.Printf("Already using the latest version: %v\n", runtime.Version)
			return nil
		}

		fmt.Printf("Do you want to update to the latest version: %v? (y/n):\n", latest.Version())
		input, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil || (input != "y\n" && input != "n\n") {
			return fmt.Errorf("failed validating input")
		} else if input == "n\n" {
			return nil
		}

		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate current executable: %w", err)
		}

		if err := selfupdate.UpdateTo(cmd.Context(), latest.AssetURL, latest.AssetName, exe); err != nil {
			return fmt.Errorf("update binary: %w", err)
		}

		fmt.Printf("Successfully updated to the latest version: %v\n", latest.Version())
		return nil
	}

	return command
}

package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Ask the update server whether a newer version exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := newChecker().Check(cmd.Context(), updateQuery())
		if err != nil {
			return err
		}

		if !info.HasUpdate {
			PrintSuccess("You are running the latest version.")
			return nil
		}

		PrintInfo(fmt.Sprintf("Version %s is available", info.Version))

		if info.FileSize > 0 {
			PrintDetail("  size: " + humanize.IBytes(uint64(info.FileSize)))
		}

		PrintDetail("  url:  " + info.DownloadURL)

		if info.ForceUpdate {
			PrintWarning("  this update is required")
		}

		if info.Changelog != "" {
			fmt.Println()
			fmt.Println(info.Changelog)
		}

		return nil
	},
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/NamanBalaji/updater/internal/config"
	"github.com/NamanBalaji/updater/internal/errors"
	"github.com/NamanBalaji/updater/internal/logger"
)

var (
	cfgFile string
	debug   bool

	cfg *config.Config
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "updater",
	Short:         "Parallel chunk downloader and self-updater",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.Path()
		}

		c, err := config.Load(path)
		if err != nil {
			return err
		}

		cfg = c

		return logger.InitLogging(debug, "")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			PrintError(err.Error())
		}

		logger.Close()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+config.Path()+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.SetVersionTemplate("updater version {{.Version}}\n")

	rootCmd.AddCommand(checkCmd, downloadCmd, updateCmd, historyCmd)
}

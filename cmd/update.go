package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NamanBalaji/updater/internal/errors"
	"github.com/NamanBalaji/updater/internal/logger"
	"github.com/NamanBalaji/updater/internal/tui"
	"github.com/NamanBalaji/updater/internal/updater"
	"github.com/NamanBalaji/updater/internal/verify"
)

// errReported marks an error already printed with its remediation steps.
var errReported = errors.New("update failed")

var (
	assumeYes bool
	noTUI     bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download, verify and install the latest version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		magic, err := verify.ParseMagic(cfg.Verify.Magic)
		if err != nil {
			return err
		}

		repo, err := openHistory()
		if err != nil {
			return err
		}
		defer repo.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var installed bool

		if noTUI {
			line := &progressLine{}
			u := newUpdater(repo, magic, plainEvents(line))

			installed, err = runPlain(ctx, u, line)
		} else {
			// the dialog owns the terminal, so logs go to the file
			if err := logger.InitLogging(debug, cfg.Log.Path); err != nil {
				return err
			}

			installed, err = tui.Run(ctx, assumeYes, func(onEvent func(updater.Event)) tui.Pipeline {
				return newUpdater(repo, magic, onEvent)
			})
		}

		if err != nil || !installed {
			return err
		}

		repo.Close()
		awaitExit(ctx)

		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "install without asking")
	updateCmd.Flags().BoolVar(&noTUI, "no-tui", false, "print plain progress instead of the dialog")
}

func runPlain(ctx context.Context, u *updater.Updater, line *progressLine) (bool, error) {
	info, err := u.Check(ctx)
	if err != nil {
		return false, reported(err)
	}

	if !info.HasUpdate {
		PrintSuccess("You are running the latest version.")
		return false, nil
	}

	PrintInfo(fmt.Sprintf("Version %s is available", info.Version))

	if !assumeYes && !info.ForceUpdate && !confirm(fmt.Sprintf("Install version %s? [y/N] ", info.Version)) {
		PrintWarning("update skipped")
		return false, nil
	}

	err = u.Install(ctx, info)
	line.finish()

	if err != nil {
		return false, reported(err)
	}

	return true, nil
}

func plainEvents(line *progressLine) func(updater.Event) {
	var last updater.Stage

	return func(e updater.Event) {
		if e.Stage != last {
			line.finish()

			if e.Stage != updater.StageError {
				PrintDetail("› " + string(e.Stage))
			}

			last = e.Stage
		}

		if e.Progress.State != 0 {
			line.update(e.Progress)
		}
	}
}

func reported(err error) error {
	var report *updater.ErrorReport
	if !errors.As(err, &report) {
		return err
	}

	PrintReport(report)

	return errReported
}

func confirm(prompt string) bool {
	fmt.Print(prompt)

	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes"
}

// awaitExit blocks until the launcher ends the process after its grace delay.
func awaitExit(ctx context.Context) {
	PrintSuccess(fmt.Sprintf("Installer started, exiting in %s", cfg.Install.GraceDelay))
	<-ctx.Done()
}

package updater

import (
	"fmt"

	"github.com/NamanBalaji/updater/internal/errors"
)

// ErrorReport is what the update dialog shows when a stage fails.
type ErrorReport struct {
	Stage    Stage
	Message  string
	Category errors.ErrorCategory
	Steps    []string

	err error
}

func (r *ErrorReport) Error() string {
	return fmt.Sprintf("%s: %s", r.Stage, r.Message)
}

func (r *ErrorReport) Unwrap() error {
	return r.err
}

// NewErrorReport classifies err raised during stage.
func NewErrorReport(stage Stage, err error) *ErrorReport {
	category := errors.Category(err)

	return &ErrorReport{
		Stage:    stage,
		Message:  err.Error(),
		Category: category,
		Steps:    remediation(stage, category),
		err:      err,
	}
}

func remediation(stage Stage, category errors.ErrorCategory) []string {
	switch category {
	case errors.CategoryNetwork:
		return []string{
			"Check your internet connection.",
			"If you are behind a proxy or firewall, allow downloads from the update server.",
			"Press enter to retry.",
		}
	case errors.CategoryVerification:
		return []string{
			"The downloaded file failed its integrity check and was discarded.",
			"Press enter to download a fresh copy.",
			"If this keeps happening, download the installer manually from the website.",
		}
	case errors.CategoryIO:
		if stage == StageBackingUp {
			return []string{
				"Make sure the backup directory is writable.",
				"Free some disk space and retry.",
			}
		}

		return []string{
			"Make sure there is enough free disk space for the installer.",
			"Check that the download directory is writable.",
			"Press enter to retry.",
		}
	case errors.CategoryConflict:
		return []string{
			"Another update download is already running.",
			"Wait for it to finish or close other instances of the application.",
		}
	case errors.CategoryContext:
		return []string{"The update was cancelled. Press enter to start again."}
	case errors.CategorySecurity:
		return []string{
			"The update server refused access.",
			"Check that your installation is activated, then retry.",
		}
	case errors.CategoryResource:
		return []string{
			"The update file is no longer available on the server.",
			"Check for updates again later.",
		}
	}

	if stage == StageInstalling {
		return []string{
			"The installer could not be started.",
			"Run the downloaded installer manually.",
		}
	}

	return []string{
		"Press enter to retry.",
		"Check the log file for details.",
	}
}

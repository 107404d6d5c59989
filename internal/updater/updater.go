package updater

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/NamanBalaji/updater/internal/errors"
	"github.com/NamanBalaji/updater/internal/installer"
	"github.com/NamanBalaji/updater/internal/logger"
	"github.com/NamanBalaji/updater/internal/progress"
	"github.com/NamanBalaji/updater/internal/session"
	"github.com/NamanBalaji/updater/internal/status"
	"github.com/NamanBalaji/updater/internal/update"
	"github.com/NamanBalaji/updater/internal/verify"
)

// Stage labels the update dialog.
type Stage string

const (
	StageChecking    Stage = "checking"
	StageDownloading Stage = "downloading"
	StageVerifying   Stage = "verifying"
	StageBackingUp   Stage = "backing-up"
	StageInstalling  Stage = "installing"
	StageComplete    Stage = "complete"
	StageError       Stage = "error"
)

// Event is one update pushed to the UI.
type Event struct {
	Stage    Stage
	Message  string
	Info     *update.Info
	Progress progress.Progress
	Report   *ErrorReport
}

// Checker asks the metadata endpoint for a release.
type Checker interface {
	Check(ctx context.Context, q update.Query) (*update.Info, error)
}

// Launcher starts the installer.
type Launcher interface {
	Launch(path string, args ...string) (int, error)
}

// Config is everything the pipeline needs besides its collaborators.
type Config struct {
	Query       update.Query
	DownloadDir string
	Magic       []byte
	RequireHash bool
	// Executable is backed up before installing. Empty skips the backup.
	Executable  string
	BackupDir   string
	InstallArgs []string
}

// Updater runs check, download, verify, backup and install.
type Updater struct {
	cfg      Config
	checker  Checker
	manager  *session.Manager
	launcher Launcher
	onEvent  func(Event)
	log      zerolog.Logger

	mu      sync.Mutex
	session *session.Session
}

// New creates an updater. onEvent may be nil and is never called concurrently.
func New(cfg Config, checker Checker, manager *session.Manager, launcher Launcher, onEvent func(Event)) *Updater {
	if onEvent == nil {
		onEvent = func(Event) {}
	}

	return &Updater{
		cfg:      cfg,
		checker:  checker,
		manager:  manager,
		launcher: launcher,
		onEvent:  onEvent,
		log:      logger.With("updater"),
	}
}

// Check only asks whether an update exists.
func (u *Updater) Check(ctx context.Context) (*update.Info, error) {
	u.onEvent(Event{Stage: StageChecking})

	info, err := u.checker.Check(ctx, u.cfg.Query)
	if err != nil {
		return nil, u.fail(StageChecking, err)
	}

	return info, nil
}

// Run executes the whole pipeline. Calling it again after a failure is the
// retry: the artifact is downloaded from scratch.
func (u *Updater) Run(ctx context.Context) (*update.Info, error) {
	info, err := u.Check(ctx)
	if err != nil {
		return nil, err
	}

	if !info.HasUpdate {
		u.onEvent(Event{Stage: StageComplete, Info: info, Message: "already up to date"})
		return info, nil
	}

	return info, u.Install(ctx, info)
}

// Install downloads, verifies and launches the release described by info.
func (u *Updater) Install(ctx context.Context, info *update.Info) error {
	dest := filepath.Join(u.cfg.DownloadDir, artifactName(info))

	u.log.Info().Str("version", info.Version).Str("dest", dest).Msg("installing update")
	u.onEvent(Event{Stage: StageDownloading, Info: info})

	if err := u.download(ctx, info, dest); err != nil {
		stage := StageDownloading
		if errors.Is(err, errors.ErrVerificationFailed) {
			stage = StageVerifying
		}

		return u.fail(stage, err)
	}

	if u.cfg.Executable != "" {
		u.onEvent(Event{Stage: StageBackingUp, Info: info})

		if _, err := installer.Backup(u.cfg.Executable, u.cfg.BackupDir); err != nil {
			return u.fail(StageBackingUp, errors.NewIOError(err, u.cfg.Executable))
		}
	}

	u.onEvent(Event{Stage: StageInstalling, Info: info})

	if _, err := u.launcher.Launch(dest, u.cfg.InstallArgs...); err != nil {
		return u.fail(StageInstalling, err)
	}

	u.onEvent(Event{Stage: StageComplete, Info: info, Message: fmt.Sprintf("installing %s", info.Version)})

	return nil
}

func (u *Updater) download(ctx context.Context, info *update.Info, dest string) error {
	verifier := verify.Verifier{
		Magic:       u.cfg.Magic,
		SHA256:      info.SHA256,
		RequireHash: u.cfg.RequireHash,
	}

	s, err := u.manager.Start(ctx, info.DownloadURL, dest, session.Options{
		Version: info.Version,
		OnProgress: func(p progress.Progress) {
			stage := StageDownloading

			switch p.State {
			case status.Verifying, status.Complete:
				stage = StageVerifying
			case status.Failed, status.Cancelled:
				// reported by fail
				return
			}

			u.onEvent(Event{Stage: stage, Info: info, Progress: p})
		},
		Verify: verifier.Verify,
	})
	if err != nil {
		return err
	}

	u.mu.Lock()
	u.session = s
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		u.session = nil
		u.mu.Unlock()
	}()

	<-s.Done()

	return s.Err()
}

func (u *Updater) fail(stage Stage, err error) error {
	report := NewErrorReport(stage, err)

	u.log.Error().Err(err).Str("stage", string(stage)).Str("category", string(report.Category)).Msg("update failed")
	u.onEvent(Event{Stage: StageError, Report: report, Message: report.Message})

	return report
}

func (u *Updater) active() *session.Session {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.session
}

// Pause pauses the running download, if any.
func (u *Updater) Pause() bool {
	if s := u.active(); s != nil {
		return s.Pause()
	}

	return false
}

// Resume resumes the running download, if any.
func (u *Updater) Resume() bool {
	if s := u.active(); s != nil {
		return s.Resume()
	}

	return false
}

// Cancel cancels the running download, if any.
func (u *Updater) Cancel() bool {
	if s := u.active(); s != nil {
		return s.Cancel()
	}

	return false
}

// artifactName picks the local file name from the download URL.
func artifactName(info *update.Info) string {
	if parsed, err := url.Parse(info.DownloadURL); err == nil {
		if base := path.Base(parsed.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}

	return "update-" + info.Version + ".exe"
}

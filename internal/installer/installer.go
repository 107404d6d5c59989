package installer

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/NamanBalaji/updater/internal/filesystem"
	"github.com/NamanBalaji/updater/internal/logger"
)

const backupTimeFormat = "20060102-150405"

// Backup copies src into dir as <name>.<timestamp><ext> and returns the copy's path.
func Backup(src, dir string) (string, error) {
	fs := filesystem.NewOSFileSystem()

	base := filepath.Base(src)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext) + "." + time.Now().Format(backupTimeFormat) + ext
	dst := filepath.Join(dir, name)

	n, err := fs.CopyFile(src, dst)
	if err != nil {
		return "", fmt.Errorf("backup %s: %w", src, err)
	}

	log := logger.With("installer")
	log.Info().Str("src", src).Str("dst", dst).Int64("bytes", n).Msg("backup written")

	return dst, nil
}

// Launcher hands the downloaded installer over to the OS and ends this process.
type Launcher struct {
	// GraceDelay lets the UI show its final frame before Exit runs.
	GraceDelay time.Duration
	// Exit terminates the host. Nil disables the scheduled exit.
	Exit func(code int)

	log zerolog.Logger
}

// NewLauncher creates a launcher that exits the process after delay.
func NewLauncher(delay time.Duration) *Launcher {
	return &Launcher{
		GraceDelay: delay,
		Exit:       os.Exit,
		log:        logger.With("installer"),
	}
}

// Launch starts path detached from this process and schedules Exit(0).
// It returns the child's pid.
func (l *Launcher) Launch(path string, args ...string) (int, error) {
	cmd := exec.Command(path, args...)
	cmd.Dir = filepath.Dir(path)
	cmd.SysProcAttr = detached()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start installer: %w", err)
	}

	pid := cmd.Process.Pid

	if err := cmd.Process.Release(); err != nil {
		l.log.Warn().Err(err).Int("pid", pid).Msg("failed to release installer process")
	}

	l.log.Info().Str("path", path).Int("pid", pid).Dur("grace", l.GraceDelay).Msg("installer launched")

	if l.Exit != nil {
		time.AfterFunc(l.GraceDelay, func() { l.Exit(0) })
	}

	return pid, nil
}

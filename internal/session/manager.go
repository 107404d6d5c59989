package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/NamanBalaji/updater/internal/errors"
	engine "github.com/NamanBalaji/updater/internal/http"
	"github.com/NamanBalaji/updater/internal/lock"
	"github.com/NamanBalaji/updater/internal/logger"
	"github.com/NamanBalaji/updater/internal/progress"
	"github.com/NamanBalaji/updater/internal/repository"
)

// ErrNoDestination is returned by Start without a destination path.
var ErrNoDestination = errors.New("destination path is required")

// VerifyFunc inspects the finished artifact before the session completes.
type VerifyFunc func(ctx context.Context, path string) error

// Recorder persists the outcome of finished sessions.
type Recorder interface {
	Save(record *repository.Record) error
}

// Options tune a single Start call.
type Options struct {
	// Version tells apart two artifacts served from the same URL.
	Version    string
	OnProgress progress.Func
	Verify     VerifyFunc
}

// Manager owns the one download session a process may run at a time.
type Manager struct {
	mu     sync.Mutex
	active *Session

	downloader *engine.Downloader
	recorder   Recorder
	log        zerolog.Logger
}

// NewManager creates a manager. recorder may be nil.
func NewManager(downloader *engine.Downloader, recorder Recorder) *Manager {
	if downloader == nil {
		downloader = engine.New(nil)
	}

	return &Manager{
		downloader: downloader,
		recorder:   recorder,
		log:        logger.With("session"),
	}
}

// Start begins downloading url into destPath and returns immediately.
//
// While a session is active, a Start for the same URL and version fails with
// ErrAlreadyInProgress and any other Start fails with ErrConflictingDownload.
// A destination locked by another process is also ErrAlreadyInProgress.
// The session runs until it settles or ctx is done.
func (m *Manager) Start(ctx context.Context, url, destPath string, opts Options) (*Session, error) {
	if destPath == "" {
		return nil, ErrNoDestination
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		if m.active.matches(url, opts.Version) {
			m.log.Debug().Str("url", url).Msg("download already in progress")
			return nil, fmt.Errorf("%w: %s", errors.ErrAlreadyInProgress, url)
		}

		m.log.Warn().Str("url", url).Str("active", m.active.URL).Msg("rejecting conflicting download")

		return nil, fmt.Errorf("%w: %s is downloading", errors.ErrConflictingDownload, m.active.URL)
	}

	fileLock, ok, err := lock.Acquire(destPath)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s is locked by another process", errors.ErrAlreadyInProgress, destPath)
	}

	s := newSession(m, url, destPath, opts)
	s.lock = fileLock
	m.active = s

	m.log.Info().Str("id", s.ID.String()).Str("url", url).Str("dest", destPath).Msg("session started")

	go s.run(ctx)

	return s, nil
}

// Active returns the running session, or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.active
}

// release frees the slot held by s so a new Start can proceed.
func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := s.lock.Release(); err != nil {
		m.log.Warn().Err(err).Str("dest", s.DestPath).Msg("failed to release destination lock")
	}

	s.lock = nil

	if m.active == s {
		m.active = nil
	}
}

func (m *Manager) record(rec *repository.Record) {
	if m.recorder == nil {
		return
	}

	if err := m.recorder.Save(rec); err != nil {
		m.log.Warn().Err(err).Str("id", rec.ID.String()).Msg("failed to record session")
	}
}

package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NamanBalaji/updater/internal/errors"
	"github.com/NamanBalaji/updater/internal/filesystem"
	engine "github.com/NamanBalaji/updater/internal/http"
	"github.com/NamanBalaji/updater/internal/lock"
	"github.com/NamanBalaji/updater/internal/progress"
	"github.com/NamanBalaji/updater/internal/repository"
	"github.com/NamanBalaji/updater/internal/speed"
	"github.com/NamanBalaji/updater/internal/status"
)

// Session is one download from probe to a terminal state.
// Counters are atomics because every in-flight fetcher reports into them;
// progress callbacks are serialized by progressMu.
type Session struct {
	ID        uuid.UUID
	URL       string
	Version   string
	DestPath  string
	TempDir   string
	StartedAt time.Time

	manager    *Manager
	downloader *engine.Downloader
	fs         *filesystem.OSFileSystem
	lock       *lock.Lock
	log        zerolog.Logger

	state      atomic.Int32
	downloaded atomic.Int64
	total      atomic.Int64
	threads    atomic.Int32
	paused     atomic.Bool
	cancelled  atomic.Bool
	// ownsDest is set once this session starts writing DestPath itself.
	ownsDest atomic.Bool

	progressMu sync.Mutex
	tracker    *speed.Tracker
	onProgress progress.Func
	verify     VerifyFunc

	mu    sync.RWMutex
	probe *engine.ProbeResult
	plan  engine.Plan
	err   error

	done chan struct{}
}

func newSession(m *Manager, url, destPath string, opts Options) *Session {
	id := uuid.New()

	return &Session{
		ID:         id,
		URL:        url,
		Version:    opts.Version,
		DestPath:   destPath,
		TempDir:    engine.TempDir(destPath),
		StartedAt:  time.Now(),
		manager:    m,
		downloader: m.downloader,
		fs:         filesystem.NewOSFileSystem(),
		log:        m.log.With().Str("id", id.String()).Logger(),
		tracker:    speed.NewTracker(0),
		onProgress: opts.OnProgress,
		verify:     opts.Verify,
		done:       make(chan struct{}),
	}
}

func (s *Session) matches(url, version string) bool {
	return s.URL == url && s.Version == version
}

// State returns the current lifecycle state.
func (s *Session) State() status.State {
	return s.state.Load()
}

// Pause stops counting arriving bytes. Transfers keep running.
// It reports whether the call had an effect.
func (s *Session) Pause() bool {
	if !status.IsInterruptible(s.State()) || !s.paused.CompareAndSwap(false, true) {
		return false
	}

	s.log.Info().Msg("paused")
	s.emit()

	return true
}

// Resume undoes Pause.
func (s *Session) Resume() bool {
	if !status.IsInterruptible(s.State()) || !s.paused.CompareAndSwap(true, false) {
		return false
	}

	s.log.Info().Msg("resumed")
	s.emit()

	return true
}

// Cancel asks the session to stop. No new chunk starts, running chunks are
// allowed to finish, and the session then settles as cancelled.
// It has no effect once merging has begun.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !status.IsInterruptible(s.State()) || !s.cancelled.CompareAndSwap(false, true) {
		return false
	}

	s.log.Info().Msg("cancel requested")

	return true
}

// Paused reports whether progress accounting is paused.
func (s *Session) Paused() bool {
	return s.paused.Load()
}

// Done is closed once the session reached a terminal state and released its slot.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session settles and returns its error.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return s.Err()
	}
}

// Err is the terminal error, nil while running or after success.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.err
}

// Probe returns what the metadata request found, nil before probing finished.
func (s *Session) Probe() *engine.ProbeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.probe
}

// Plan returns the chunk layout, empty on the single stream path.
func (s *Session) Plan() engine.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.plan
}

// Progress returns a snapshot for UIs.
func (s *Session) Progress() progress.Progress {
	downloaded := s.downloaded.Load()
	total := s.total.Load()
	bps := s.tracker.CurrentSpeed()
	eta, ok := s.tracker.ETA()

	return progress.Progress{
		State:          s.State(),
		Paused:         s.paused.Load(),
		Progress:       progress.Percent(downloaded, total),
		DownloadedSize: downloaded,
		TotalSize:      total,
		Speed:          bps,
		SpeedText:      speed.FormatSpeed(bps),
		ETA:            speed.FormatETA(eta, ok),
		Threads:        int(s.threads.Load()),
	}
}

// Stopped implements engine.Control.
func (s *Session) Stopped() bool {
	return s.cancelled.Load()
}

// OnBytes implements engine.Control. Bytes arriving while paused are not counted.
func (s *Session) OnBytes(n int64) {
	if n <= 0 || s.paused.Load() {
		return
	}

	s.downloaded.Add(n)

	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	// Read under the lock so the tracker never sees the count go backwards.
	if s.tracker.OnBytes(s.downloaded.Load()) {
		s.emitLocked()
	}
}

// SetTotal records a size learned after probing.
func (s *Session) SetTotal(total int64) {
	if total <= 0 {
		return
	}

	s.total.Store(total)
	s.tracker.SetTotal(total)
}

func (s *Session) emit() {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	s.emitLocked()
}

func (s *Session) emitLocked() {
	if s.onProgress != nil {
		s.onProgress(s.Progress())
	}
}

func (s *Session) setState(st status.State) {
	s.state.Store(st)
	s.log.Debug().Str("state", status.String(st)).Msg("state changed")
	s.emit()
}

func (s *Session) run(ctx context.Context) {
	s.finish(s.pipeline(ctx))
}

func (s *Session) pipeline(ctx context.Context) error {
	s.setState(status.Probing)

	info, err := s.downloader.Probe(ctx, s.URL)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.probe = info
	s.mu.Unlock()

	s.SetTotal(info.Size)

	if s.cancelled.Load() {
		return errors.ErrCancelled
	}

	policy := s.downloader.Config().Policy()

	if !engine.ShouldChunk(info.Size, info.SupportsRange, policy) {
		if err := s.streamWhole(ctx, info); err != nil {
			return err
		}
	} else if err := s.downloadChunks(ctx, info, policy); err != nil {
		return err
	}

	if s.verify != nil {
		s.setState(status.Verifying)

		if err := s.verify(ctx, s.DestPath); err != nil {
			return err
		}
	}

	return nil
}

func (s *Session) streamWhole(ctx context.Context, info *engine.ProbeResult) error {
	s.threads.Store(1)
	s.setState(status.SingleStreaming)

	if _, err := s.downloader.Stream(ctx, info.ResolvedURL, s.DestPath, s); err != nil {
		return err
	}

	s.ownsDest.Store(true)

	if s.cancelled.Load() {
		return errors.ErrCancelled
	}

	return nil
}

// beginMerge enters Merging unless a cancel got in first. Cancel takes the
// same lock, so once this returns true no cancel can be accepted.
func (s *Session) beginMerge() bool {
	s.mu.Lock()

	if s.cancelled.Load() {
		s.mu.Unlock()
		return false
	}

	s.state.Store(status.Merging)
	s.ownsDest.Store(true)
	s.mu.Unlock()

	s.log.Debug().Str("state", status.String(status.Merging)).Msg("state changed")
	s.emit()

	return true
}

func (s *Session) downloadChunks(ctx context.Context, info *engine.ProbeResult, policy engine.Policy) error {
	plan := engine.PlanChunks(info.Size, policy)

	s.mu.Lock()
	s.plan = plan
	s.mu.Unlock()

	s.threads.Store(int32(plan.Threads))

	if err := s.fs.EnsureDirectory(s.TempDir); err != nil {
		return errors.NewIOError(fmt.Errorf("create temp dir: %w", err), s.TempDir)
	}

	s.setState(status.Scheduling)

	results, err := s.downloader.Schedule(ctx, info.ResolvedURL, plan, s.TempDir, s)
	if err != nil {
		return err
	}

	if !s.beginMerge() {
		return errors.ErrCancelled
	}

	if _, err := engine.Merge(results, s.DestPath, info.Size); err != nil {
		return err
	}

	if err := s.fs.Remove(s.TempDir); err != nil {
		s.log.Warn().Err(err).Str("dir", s.TempDir).Msg("failed to remove temp dir")
	}

	return nil
}

// finish settles the session: cleanup, terminal state, slot release, history.
// done is closed last so Wait returning means a new Start can succeed.
func (s *Session) finish(err error) {
	final := status.Complete

	switch {
	case err == nil:
		s.completeCounters()
	case errors.Is(err, errors.ErrCancelled), errors.Is(err, context.Canceled):
		final = status.Cancelled

		if !errors.Is(err, errors.ErrCancelled) {
			err = fmt.Errorf("%w: %w", errors.ErrCancelled, err)
		}
	default:
		final = status.Failed
	}

	if final != status.Complete {
		leftovers := []string{s.TempDir, engine.PartPath(s.DestPath)}
		if s.ownsDest.Load() {
			leftovers = append(leftovers, s.DestPath)
		}

		if rmErr := s.fs.Remove(leftovers...); rmErr != nil {
			s.log.Warn().Err(rmErr).Msg("cleanup incomplete")
		}
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	s.paused.Store(false)
	s.setState(final)

	event := s.log.Info()
	if final == status.Failed {
		event = s.log.Error().Err(err)
	}

	event.Str("state", status.String(final)).Int64("bytes", s.downloaded.Load()).Dur("elapsed", time.Since(s.StartedAt)).Msg("session finished")

	s.manager.release(s)
	s.manager.record(s.record(final, err))

	close(s.done)
}

// completeCounters makes the final snapshot read 100% even if bytes were
// skipped while paused or the size was never announced.
func (s *Session) completeCounters() {
	size, err := s.fs.FileSize(s.DestPath)
	if err != nil || size == 0 {
		size = max(s.total.Load(), s.downloaded.Load())
	}

	if s.total.Load() <= 0 {
		s.SetTotal(size)
	}

	s.downloaded.Store(s.total.Load())
}

func (s *Session) record(final status.State, err error) *repository.Record {
	rec := &repository.Record{
		ID:         s.ID,
		URL:        s.URL,
		DestPath:   s.DestPath,
		Version:    s.Version,
		State:      status.String(final),
		TotalSize:  s.total.Load(),
		Threads:    int(s.threads.Load()),
		StartedAt:  s.StartedAt,
		FinishedAt: time.Now(),
	}

	if err != nil {
		rec.Error = err.Error()
	}

	return rec
}

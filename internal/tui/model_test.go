package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanBalaji/updater/internal/errors"
	"github.com/NamanBalaji/updater/internal/progress"
	"github.com/NamanBalaji/updater/internal/status"
	"github.com/NamanBalaji/updater/internal/update"
	"github.com/NamanBalaji/updater/internal/updater"
)

type fakePipeline struct {
	mu         sync.Mutex
	info       *update.Info
	checkErr   error
	installErr error
	checks     int
	installs   int
	paused     int
	resumed    int
	cancelled  int
}

func (f *fakePipeline) Check(context.Context) (*update.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.checks++

	return f.info, f.checkErr
}

func (f *fakePipeline) Install(context.Context, *update.Info) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.installs++

	return f.installErr
}

func (f *fakePipeline) Pause() bool  { f.paused++; return true }
func (f *fakePipeline) Resume() bool { f.resumed++; return true }
func (f *fakePipeline) Cancel() bool { f.cancelled++; return true }

func keyPress(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}

	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	require.NotNil(t, cmd)

	_, next := m.Update(cmd())

	return next
}

func release() *update.Info {
	return &update.Info{HasUpdate: true, Version: "2.0.0", DownloadURL: "http://x/setup.exe", FileSize: 5 << 20, Changelog: "Faster downloads"}
}

func TestModel_ConfirmThenInstall(t *testing.T) {
	pipeline := &fakePipeline{info: release()}
	m := NewModel(t.Context(), pipeline, false)

	run(t, m, m.check())
	assert.Equal(t, viewConfirm, m.view)
	assert.Contains(t, m.View(), "Version 2.0.0 is available (5.0 MiB)")
	assert.Contains(t, m.View(), "Faster downloads")

	_, cmd := m.Update(keyPress("enter"))
	assert.Equal(t, viewProgress, m.view)

	m.Update(eventMsg(updater.Event{
		Stage: updater.StageDownloading,
		Progress: progress.Progress{
			State:          status.Scheduling,
			Progress:       25,
			DownloadedSize: 1 << 20,
			TotalSize:      4 << 20,
			SpeedText:      "2.0 MB/s",
			ETA:            "2s",
			Threads:        16,
		},
	}))

	view := m.View()
	assert.Contains(t, view, "Downloading update")
	assert.Contains(t, view, "setup.exe")
	assert.Contains(t, view, "25.0%")
	assert.Contains(t, view, "16 threads")

	next := run(t, m, cmd)
	assert.True(t, m.Installed())
	assert.Equal(t, viewDone, m.view)
	require.NotNil(t, next)
	assert.IsType(t, tea.QuitMsg{}, next())
	assert.Equal(t, 1, pipeline.installs)
}

func TestModel_AutoConfirmAndForcedUpdates(t *testing.T) {
	forced := release()
	forced.ForceUpdate = true

	tests := []struct {
		name        string
		info        *update.Info
		autoConfirm bool
	}{
		{"auto confirm", release(), true},
		{"forced update", forced, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(t.Context(), &fakePipeline{info: tt.info}, tt.autoConfirm)

			next := run(t, m, m.check())
			assert.Equal(t, viewProgress, m.view)
			assert.NotNil(t, next)
		})
	}
}

func TestModel_UpToDate(t *testing.T) {
	m := NewModel(t.Context(), &fakePipeline{info: &update.Info{Version: "1.0.0"}}, false)

	run(t, m, m.check())
	assert.Equal(t, viewUpToDate, m.view)
	assert.Contains(t, m.View(), "latest version")
}

func TestModel_Controls(t *testing.T) {
	pipeline := &fakePipeline{info: release()}
	m := NewModel(t.Context(), pipeline, true)

	// keys do nothing before the download starts
	m.Update(keyPress("p"))
	assert.Zero(t, pipeline.paused)

	run(t, m, m.check())

	m.Update(keyPress("p"))
	assert.Equal(t, "download paused", m.notice)
	m.Update(keyPress("r"))
	m.Update(keyPress("c"))

	assert.Equal(t, 1, pipeline.paused)
	assert.Equal(t, 1, pipeline.resumed)
	assert.Equal(t, 1, pipeline.cancelled)

	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 2, pipeline.cancelled)
}

func TestModel_ErrorThenRetry(t *testing.T) {
	pipeline := &fakePipeline{info: release(), installErr: errors.NewChunkError(2, 4, errors.New("connection reset"))}
	m := NewModel(t.Context(), pipeline, true)

	cmd := run(t, m, m.check())
	run(t, m, cmd)

	require.Equal(t, viewError, m.view)

	view := m.View()
	assert.Contains(t, view, "Update failed while downloading")
	assert.Contains(t, view, "category: NETWORK")
	assert.Contains(t, view, "Check your internet connection.")

	pipeline.installErr = nil

	_, retry := m.Update(keyPress("enter"))
	assert.Equal(t, viewChecking, m.view)

	cmd = run(t, m, retry)
	run(t, m, cmd)

	assert.Equal(t, viewDone, m.view)
	assert.Equal(t, 2, pipeline.checks)
	assert.Equal(t, 2, pipeline.installs)
}

func TestModel_ReportFromEvent(t *testing.T) {
	m := NewModel(t.Context(), &fakePipeline{info: release()}, true)
	run(t, m, m.check())

	report := updater.NewErrorReport(updater.StageVerifying, errors.NewVerificationError(errors.New("sha256 mismatch"), "setup.exe"))
	m.Update(eventMsg(updater.Event{Stage: updater.StageError, Report: report}))

	assert.Equal(t, viewError, m.view)
	assert.Contains(t, m.View(), "Update failed while verifying")

	// late progress must not leave the error screen
	m.Update(eventMsg(updater.Event{Stage: updater.StageDownloading, Progress: progress.Progress{State: status.Scheduling}}))
	assert.Equal(t, viewError, m.view)
	assert.Equal(t, updater.StageError, m.stage)
}

func TestModel_CheckFails(t *testing.T) {
	m := NewModel(t.Context(), &fakePipeline{checkErr: update.ErrNoEndpoint}, false)

	run(t, m, m.check())
	assert.Equal(t, viewError, m.view)
	assert.Equal(t, updater.StageChecking, m.report.Stage)
	assert.Contains(t, m.View(), "update endpoint is not configured")
}

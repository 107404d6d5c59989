package tui

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NamanBalaji/updater/internal/progress"
	"github.com/NamanBalaji/updater/internal/tui/components"
	"github.com/NamanBalaji/updater/internal/tui/styles"
	"github.com/NamanBalaji/updater/internal/update"
	"github.com/NamanBalaji/updater/internal/updater"
)

type currentView int

const (
	viewChecking currentView = iota
	viewConfirm
	viewProgress
	viewUpToDate
	viewDone
	viewError
)

// Pipeline is the part of the updater the dialog drives.
type Pipeline interface {
	Check(ctx context.Context) (*update.Info, error)
	Install(ctx context.Context, info *update.Info) error
	Pause() bool
	Resume() bool
	Cancel() bool
}

// Model is the update dialog.
type Model struct {
	ctx         context.Context
	pipeline    Pipeline
	autoConfirm bool

	view     currentView
	stage    updater.Stage
	info     *update.Info
	progress progress.Progress
	report   *updater.ErrorReport
	notice   string

	spinner spinner.Model
	help    help.Model
	keys    keyMap

	width, height int
	installed     bool
}

type (
	clearMsg   struct{}
	eventMsg   updater.Event
	checkedMsg struct {
		info *update.Info
		err  error
	}
	installedMsg struct{ err error }
)

func clearNotifications() tea.Cmd {
	return tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
		return clearMsg{}
	})
}

// NewModel creates the dialog. With autoConfirm the update installs without asking.
func NewModel(ctx context.Context, pipeline Pipeline, autoConfirm bool) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.Pink)

	return &Model{
		ctx:         ctx,
		pipeline:    pipeline,
		autoConfirm: autoConfirm,
		view:        viewChecking,
		stage:       updater.StageChecking,
		spinner:     sp,
		help:        help.New(),
		keys:        newKeyMap(),
		width:       80,
	}
}

// Installed reports whether the installer was launched.
func (m *Model) Installed() bool {
	return m.installed
}

// Init starts the update check.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.check(), m.spinner.Tick)
}

func (m *Model) check() tea.Cmd {
	return func() tea.Msg {
		info, err := m.pipeline.Check(m.ctx)
		return checkedMsg{info: info, err: err}
	}
}

func (m *Model) install() tea.Cmd {
	info := m.info

	return func() tea.Msg {
		return installedMsg{err: m.pipeline.Install(m.ctx, info)}
	}
}

// Update handles incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case clearMsg:
		m.notice = ""
		return m, nil

	case eventMsg:
		m.applyEvent(updater.Event(msg))
		return m, nil

	case checkedMsg:
		return m, m.checked(msg)

	case installedMsg:
		if msg.err != nil {
			m.fail(updater.StageDownloading, msg.err)
			return m, nil
		}

		m.view = viewDone
		m.installed = true

		return m, tea.Quit

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) checked(msg checkedMsg) tea.Cmd {
	if msg.err != nil {
		m.fail(updater.StageChecking, msg.err)
		return nil
	}

	m.info = msg.info

	if !msg.info.HasUpdate {
		m.view = viewUpToDate
		return nil
	}

	if m.autoConfirm || msg.info.ForceUpdate {
		return m.startInstall()
	}

	m.view = viewConfirm

	return nil
}

func (m *Model) startInstall() tea.Cmd {
	m.view = viewProgress
	m.stage = updater.StageDownloading
	m.progress = progress.Progress{}
	m.report = nil

	return m.install()
}

func (m *Model) applyEvent(e updater.Event) {
	if e.Report != nil {
		m.report = e.Report
		m.view = viewError
	}

	if m.view == viewError && e.Stage != updater.StageError {
		return
	}

	m.stage = e.Stage

	if e.Info != nil {
		m.info = e.Info
	}

	if e.Progress.State != 0 {
		m.progress = e.Progress
	}
}

// fail shows err unless an event already delivered a report for it.
func (m *Model) fail(stage updater.Stage, err error) {
	var report *updater.ErrorReport
	if !errors.As(err, &report) {
		report = updater.NewErrorReport(stage, err)
	}

	m.report = report
	m.stage = updater.StageError
	m.view = viewError
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	keys := m.keys.forView(m.view)

	switch {
	case key.Matches(msg, keys.Quit):
		if m.view == viewProgress {
			m.pipeline.Cancel()
		}

		return tea.Quit

	case key.Matches(msg, keys.Pause):
		if m.pipeline.Pause() {
			m.notice = "download paused"
			return clearNotifications()
		}

	case key.Matches(msg, keys.Resume):
		if m.pipeline.Resume() {
			m.notice = "download resumed"
			return clearNotifications()
		}

	case key.Matches(msg, keys.Cancel):
		if m.pipeline.Cancel() {
			m.notice = "cancelling..."
			return clearNotifications()
		}

	case key.Matches(msg, keys.Confirm):
		if m.view == viewConfirm {
			return m.startInstall()
		}

		// retry from scratch
		m.view = viewChecking
		m.stage = updater.StageChecking
		m.report = nil
		m.info = nil

		return m.check()
	}

	return nil
}

// View renders the dialog.
func (m *Model) View() string {
	header := styles.HeaderStyle.Width(m.width).Align(lipgloss.Center).Render("Software Update")
	footer := styles.FooterStyle.Width(m.width).Render(m.help.View(m.keys.forView(m.view)))

	var body string

	switch m.view {
	case viewChecking:
		body = fmt.Sprintf("%s Checking for updates...", m.spinner.View())
	case viewConfirm:
		body = m.renderConfirm()
	case viewProgress:
		body = m.renderProgress()
	case viewUpToDate:
		body = styles.SuccessStyle.Render("You are running the latest version.")
	case viewDone:
		body = styles.SuccessStyle.Render(fmt.Sprintf("Installing %s. The application will restart.", m.info.Version))
	case viewError:
		body = components.ErrorPanel(string(m.report.Stage), m.report.Message, string(m.report.Category), m.report.Steps, m.width)
	}

	notice := ""
	if m.notice != "" {
		notice = styles.MutedStyle.Render(m.notice)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, notice, footer)
}

func (m *Model) renderConfirm() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Version %s is available", m.info.Version)

	if m.info.FileSize > 0 {
		fmt.Fprintf(&b, " (%s)", humanize.IBytes(uint64(m.info.FileSize)))
	}

	if m.info.Changelog != "" {
		b.WriteString("\n\n" + m.info.Changelog)
	}

	b.WriteString("\n\nPress enter to install, q to quit.")

	return styles.DialogStyle.Render(b.String())
}

func (m *Model) renderProgress() string {
	stage := fmt.Sprintf("%s %s", m.spinner.View(), stageTitle(m.stage))
	if m.info != nil {
		stage += styles.MutedStyle.Render(" version " + m.info.Version)
	}

	return lipgloss.JoinVertical(lipgloss.Left, stage, "", components.Transfer(m.progress, m.artifactName(), m.width))
}

func (m *Model) artifactName() string {
	if m.info == nil {
		return ""
	}

	return path.Base(m.info.DownloadURL)
}

func stageTitle(s updater.Stage) string {
	switch s {
	case updater.StageDownloading:
		return "Downloading update"
	case updater.StageVerifying:
		return "Verifying download"
	case updater.StageBackingUp:
		return "Backing up current version"
	case updater.StageInstalling:
		return "Starting installer"
	case updater.StageComplete:
		return "Done"
	}

	return string(s)
}

// Package tui implements the interactive terminal front end.
//
// The model never blocks: bootstrap progress is polled from the tracker on a
// short tick, manifest queries and completion waits run as tea commands, and
// job submission uses the non-blocking TrySubmit.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"ytdlg/internal/dispatch"
	"ytdlg/internal/ytdl"
)

// Progress is the read side of the bootstrap progress tracker.
type Progress interface {
	Snapshot() (downloaded, total uint64)
	Active() bool
}

// Bootstrap exposes bootstrap completion.
type Bootstrap interface {
	Done() <-chan struct{}
	Err() error
}

// Querier fetches the format manifest for a URL.
type Querier interface {
	QueryManifest(ctx context.Context, url string) (*ytdl.Manifest, error)
}

// Submitter enqueues jobs without blocking.
type Submitter interface {
	TrySubmit(job dispatch.Job) (uuid.UUID, error)
}

// Holder pauses and resumes the dispatcher's worker.
type Holder interface {
	Pause()
	Resume()
	Paused() bool
}

// Deps are the runtime objects the model drives.
type Deps struct {
	Progress  Progress
	Bootstrap Bootstrap
	Querier   Querier
	Submitter Submitter
	Holder    Holder
	Waiter    *dispatch.Waiter
	OutputDir string
	ToolName  string
}

type mode int

const (
	modeBootstrapping mode = iota
	modeURL
	modeQuerying
	modePicker
	modeQueued
)

const (
	maxRecent     = 5
	pickerWindow  = 12
	minInputWidth = 20
)

// Model is the bubbletea model for the interactive session.
type Model struct {
	ctx  context.Context
	deps Deps

	mode     mode
	input    textinput.Model
	spinner  spinner.Model
	progress progress.Model

	downloaded uint64
	total      uint64
	showBar    bool

	pendingURL string
	manifest   *ytdl.Manifest
	formats    []ytdl.Format
	cursor     int
	queued     string

	status    string
	statusErr bool
	recent    []string

	width    int
	fatalErr error
	quitting bool
}

// New builds a model in the bootstrapping mode.
func New(ctx context.Context, deps Deps) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "https://www.youtube.com/watch?v=..."
	input.CharLimit = 2048
	input.Width = 60

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	if deps.ToolName == "" {
		deps.ToolName = "youtube-dl"
	}
	return Model{
		ctx:      ctx,
		deps:     deps,
		mode:     modeBootstrapping,
		input:    input,
		spinner:  spin,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

// FatalErr returns the error that ended the session, if any.
func (m Model) FatalErr() error {
	return m.fatalErr
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), m.spinner.Tick}
	if m.deps.Bootstrap != nil {
		cmds = append(cmds, waitBootstrapCmd(m.ctx, m.deps.Bootstrap))
	}
	if m.deps.Waiter != nil {
		cmds = append(cmds, awaitCompletionCmd(m.ctx, m.deps.Waiter))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = clampInt(msg.Width-8, minInputWidth, 120)
		m.progress.Width = clampInt(msg.Width-8, minInputWidth, 80)
		return m, nil
	case tickMsg:
		if m.mode != modeBootstrapping {
			return m, nil
		}
		m.pollProgress()
		return m, tickCmd()
	case bootstrapDoneMsg:
		if msg.err != nil {
			m.fatalErr = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		m.pollProgress()
		m.mode = modeURL
		return m, m.input.Focus()
	case manifestMsg:
		return m.handleManifest(msg)
	case completionMsg:
		if msg.err != nil {
			return m, nil
		}
		m.recordCompletion(msg.outcome)
		return m, awaitCompletionCmd(m.ctx, m.deps.Waiter)
	case spinner.TickMsg:
		if m.mode != modeBootstrapping && m.mode != modeQuerying {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "ctrl+p":
			if m.mode != modeBootstrapping {
				m.toggleHold()
			}
			return m, nil
		}
		switch m.mode {
		case modeURL:
			return m.updateURL(msg)
		case modePicker:
			return m.updatePicker(msg)
		case modeQueued:
			return m.updateQueued(msg)
		}
		return m, nil
	}

	if m.mode == modeURL {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) pollProgress() {
	if m.deps.Progress == nil {
		return
	}
	m.downloaded, m.total = m.deps.Progress.Snapshot()
	m.showBar = m.deps.Progress.Active()
}

func (m Model) updateURL(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		url := strings.TrimSpace(m.input.Value())
		if url == "" {
			m.setStatus("enter a video URL", true)
			return m, nil
		}
		m.pendingURL = url
		m.mode = modeQuerying
		m.status = ""
		m.input.Blur()
		return m, tea.Batch(queryCmd(m.ctx, m.deps.Querier, url), m.spinner.Tick)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleManifest(msg manifestMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeQuerying || msg.url != m.pendingURL {
		return m, nil
	}
	if msg.err != nil {
		m.mode = modeURL
		m.setStatus(fmt.Sprintf("lookup failed: %v", msg.err), true)
		return m, m.input.Focus()
	}
	if msg.manifest == nil || len(msg.manifest.Formats) == 0 {
		m.mode = modeURL
		m.setStatus("no downloadable formats found", true)
		return m, m.input.Focus()
	}
	m.manifest = msg.manifest
	m.formats = msg.manifest.Formats
	// youtube-dl lists formats worst to best.
	m.cursor = len(m.formats) - 1
	m.mode = modePicker
	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeURL
		m.manifest = nil
		m.formats = nil
		return m, m.input.Focus()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.formats)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = len(m.formats) - 1
	case "enter":
		return m.submitSelected()
	}
	return m, nil
}

func (m Model) submitSelected() (tea.Model, tea.Cmd) {
	if m.cursor < 0 || m.cursor >= len(m.formats) {
		return m, nil
	}
	format := m.formats[m.cursor]
	job := dispatch.Job{URL: m.pendingURL, FormatID: format.FormatID}
	if m.deps.OutputDir != "" {
		job.Destination = ytdl.SuggestedPath(m.deps.OutputDir, m.manifest, format)
	}
	if _, err := m.deps.Submitter.TrySubmit(job); err != nil {
		switch {
		case errors.Is(err, dispatch.ErrQueueFull):
			m.setStatus("queue is full; pick again once a download finishes", true)
		default:
			m.setStatus(fmt.Sprintf("cannot queue download: %v", err), true)
		}
		return m, nil
	}
	m.queued = fmt.Sprintf("%s  (format %s)", m.manifest.DisplayTitle(), format.FormatID)
	m.mode = modeQueued
	m.status = ""
	return m, nil
}

func (m Model) updateQueued(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter", "n":
		m.mode = modeURL
		m.manifest = nil
		m.formats = nil
		m.input.SetValue("")
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *Model) toggleHold() {
	if m.deps.Holder == nil {
		return
	}
	if m.deps.Holder.Paused() {
		m.deps.Holder.Resume()
		m.setStatus("queue resumed", false)
		return
	}
	m.deps.Holder.Pause()
	m.setStatus("queue held; queued downloads wait until ctrl+p", false)
}

func (m *Model) recordCompletion(outcome dispatch.Outcome) {
	var line string
	if outcome.Succeeded() {
		line = okStyle.Render("done") + " " + outcome.Job.URL
	} else {
		line = errorStyle.Render("failed") + " " + outcome.Job.URL + mutedStyle.Render(": "+firstLine(outcome.Err.Error()))
	}
	m.recent = append(m.recent, line)
	if len(m.recent) > maxRecent {
		m.recent = m.recent[len(m.recent)-maxRecent:]
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	header := titleStyle.Render("ytdlg")
	if m.deps.Holder != nil && m.mode != modeBootstrapping && m.deps.Holder.Paused() {
		header += " " + errorStyle.Render("[queue held]")
	}
	sections := []string{header}

	switch m.mode {
	case modeBootstrapping:
		sections = append(sections, m.viewBootstrap())
	case modeURL:
		sections = append(sections,
			"Video URL",
			m.input.View(),
			mutedStyle.Render("enter: look up formats  ctrl+p: hold/resume queue  esc: quit"),
		)
	case modeQuerying:
		sections = append(sections, m.spinner.View()+" Looking up formats for "+m.pendingURL)
	case modePicker:
		sections = append(sections, m.viewPicker())
	case modeQueued:
		sections = append(sections,
			okStyle.Render("Queued")+" "+m.queued,
			mutedStyle.Render("enter: another URL  ctrl+p: hold/resume queue  q: quit"),
		)
	}

	if m.status != "" {
		if m.statusErr {
			sections = append(sections, errorStyle.Render(m.status))
		} else {
			sections = append(sections, mutedStyle.Render(m.status))
		}
	}
	if len(m.recent) > 0 {
		sections = append(sections, panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, m.recent...)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) viewBootstrap() string {
	line := m.spinner.View() + " Preparing " + m.deps.ToolName
	if !m.showBar || m.total == 0 {
		return line
	}
	fraction := float64(m.downloaded) / float64(m.total)
	counts := fmt.Sprintf("%s / %s", humanize.IBytes(m.downloaded), humanize.IBytes(m.total))
	return lipgloss.JoinVertical(lipgloss.Left, line, m.progress.ViewAs(fraction), mutedStyle.Render(counts))
}

func (m Model) viewPicker() string {
	rows := []string{titleStyle.Render(m.manifest.DisplayTitle())}
	start, end := pickerRange(m.cursor, len(m.formats), pickerWindow)
	for i := start; i < end; i++ {
		label := m.formats[i].Label()
		if i == m.cursor {
			rows = append(rows, selStyle.Render("> "+label))
		} else {
			rows = append(rows, "  "+label)
		}
	}
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("%d formats  enter: download  esc: back", len(m.formats))))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// pickerRange returns the visible slice bounds keeping cursor in view.
func pickerRange(cursor, total, window int) (int, int) {
	if total <= window {
		return 0, total
	}
	start := cursor - window/2
	if start < 0 {
		start = 0
	}
	if start+window > total {
		start = total - window
	}
	return start, start + window
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

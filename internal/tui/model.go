package tui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcdonaldj/genbak/internal/adapters/tuisvc"
	"github.com/mcdonaldj/genbak/internal/backup"
	"github.com/mcdonaldj/genbak/internal/config"
	"github.com/mcdonaldj/genbak/internal/delta"
	"github.com/mcdonaldj/genbak/internal/logging"
	"github.com/mcdonaldj/genbak/internal/ports"
)

// View represents the current view state
type View int

const (
	GenerationsView View = iota
	DeltasView
	PreviewView // Restored output against the working file
)

// Model is the main TUI model
type Model struct {
	config   *config.Config
	svc      ports.TUIService
	workFile string
	view     View
	width    int
	height   int
	quitting bool

	// Generations view
	generations   []ports.TUIGenerationInfo
	genCursor     int
	selectedIndex int

	// Deltas view
	deltas      []ports.TUIDeltaInfo
	deltaCursor int
	selected    map[int]bool // Indices of deltas marked for replay

	// Preview view
	preview       *FileDiffResult
	previewScroll int

	// Status message
	statusMsg string
	statusErr bool
}

// Key bindings
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Back    key.Binding
	Backup  key.Binding
	Select  key.Binding
	Restore key.Binding
	Preview key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Backup: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "back up now"),
	),
	Select: key.NewBinding(
		key.WithKeys(" ", "tab"),
		key.WithHelp("space", "select"),
	),
	Restore: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "restore"),
	),
	Preview: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "preview"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type statusMsg struct {
	msg string
	err bool
}

type previewMsg struct {
	result *FileDiffResult
	err    error
}

// NewModel creates a TUI model for workFile backed by the real services.
func NewModel(workFile string) (*Model, error) {
	return NewModelWithService(tuisvc.New(), workFile)
}

// NewModelWithService creates a model that loads its config and
// generations through svc.
func NewModelWithService(svc ports.TUIService, workFile string) (*Model, error) {
	cfg, err := svc.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	m := NewModelWithConfig(cfg, svc, workFile)
	if err := m.loadGenerations(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewModelWithConfig creates a model without loading any data.
func NewModelWithConfig(cfg *config.Config, svc ports.TUIService, workFile string) *Model {
	return &Model{
		config:   cfg,
		svc:      svc,
		workFile: workFile,
		view:     GenerationsView,
		selected: make(map[int]bool),
	}
}

func (m *Model) loadGenerations() error {
	gens, err := m.svc.ListGenerations(m.config, m.workFile)
	if err != nil {
		return err
	}

	// Newest first
	m.generations = make([]ports.TUIGenerationInfo, len(gens))
	for i, g := range gens {
		m.generations[len(gens)-1-i] = g
	}
	if m.genCursor >= len(m.generations) {
		m.genCursor = max(len(m.generations)-1, 0)
	}
	return nil
}

func (m *Model) loadDeltas() error {
	deltas, err := m.svc.ListDeltas(m.config, m.workFile, m.selectedIndex)
	if err != nil {
		return err
	}

	// Kept oldest first so a selection replays in chain order.
	m.deltas = deltas
	if m.deltaCursor >= len(m.deltas) {
		m.deltaCursor = max(len(m.deltas)-1, 0)
	}
	return nil
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statusMsg:
		m.handleStatusMsg(msg)
		return m, nil

	case previewMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Preview failed: %v", msg.err)
			m.statusErr = true
		} else {
			m.preview = msg.result
			m.previewScroll = 0
			m.view = PreviewView
			m.statusMsg = ""
		}
		return m, nil

	case tea.KeyMsg:
		// Clear status on any key
		m.statusMsg = ""
		m.statusErr = false

		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)

		case key.Matches(msg, keys.Down):
			m.moveCursor(1)

		case key.Matches(msg, keys.Enter):
			if m.view == GenerationsView && len(m.generations) > 0 {
				m.selectedIndex = m.generations[m.genCursor].Index
				m.deltaCursor = 0
				m.selected = make(map[int]bool)
				if err := m.loadDeltas(); err != nil {
					m.statusMsg = fmt.Sprintf("Error: %v", err)
					m.statusErr = true
				} else {
					m.view = DeltasView
				}
			}

		case key.Matches(msg, keys.Back):
			switch m.view {
			case DeltasView:
				m.view = GenerationsView
				m.deltas = nil
				m.selected = make(map[int]bool)
			case PreviewView:
				m.view = DeltasView
				m.preview = nil
				m.previewScroll = 0
			}

		case key.Matches(msg, keys.Backup):
			if m.view != PreviewView {
				return m, m.runBackup()
			}

		case key.Matches(msg, keys.Select):
			if m.view == DeltasView && len(m.deltas) > 0 {
				m.toggleSelection()
			}

		case key.Matches(msg, keys.Restore):
			if m.view == DeltasView && len(m.deltas) > 0 {
				return m, m.runRestore()
			}

		case key.Matches(msg, keys.Preview):
			if m.view == DeltasView && len(m.deltas) > 0 {
				return m, m.runPreview()
			}
		}
	}

	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.view {
	case GenerationsView:
		m.genCursor = clamp(m.genCursor+delta, 0, len(m.generations)-1)
	case DeltasView:
		m.deltaCursor = clamp(m.deltaCursor+delta, 0, len(m.deltas)-1)
	case PreviewView:
		if m.preview != nil {
			maxScroll := len(m.preview.Lines) - (m.height - 10)
			m.previewScroll = clamp(m.previewScroll+delta, 0, maxScroll)
		}
	}
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

func (m *Model) toggleSelection() {
	if m.selected[m.deltaCursor] {
		delete(m.selected, m.deltaCursor)
	} else {
		m.selected[m.deltaCursor] = true
	}
}

// replayPaths returns the marked deltas in chain order, or the delta under
// the cursor when nothing is marked.
func (m *Model) replayPaths() []string {
	var paths []string
	for i, d := range m.deltas {
		if m.selected[i] {
			paths = append(paths, d.Path)
		}
	}
	if len(paths) == 0 && m.deltaCursor < len(m.deltas) {
		paths = append(paths, m.deltas[m.deltaCursor].Path)
	}
	return paths
}

func (m *Model) runBackup() tea.Cmd {
	cfg, svc, work := m.config, m.svc, m.workFile
	return func() tea.Msg {
		result := svc.RunBackup(cfg, work)
		if result.Error != nil {
			return statusMsg{err: true, msg: fmt.Sprintf("Backup failed: %v", result.Error)}
		}

		msg := fmt.Sprintf("✓ %s (%s) in generation %d",
			filepath.Base(result.DeltaPath), backup.FormatSize(result.Size), result.Generation)
		switch {
		case result.Created:
			msg += " (new)"
		case result.Rotated:
			msg += " (rotated)"
		}
		return statusMsg{msg: msg}
	}
}

func (m *Model) runRestore() tea.Cmd {
	cfg, svc, work := m.config, m.svc, m.workFile
	paths := m.replayPaths()
	return func() tea.Msg {
		result := svc.Restore(cfg, work, paths)
		if result.Error != nil {
			msg := fmt.Sprintf("Restore failed after %d of %d: %v", result.Applied, len(paths), result.Error)
			return statusMsg{err: true, msg: msg}
		}
		return statusMsg{msg: fmt.Sprintf("✓ Restored %d delta(s) to %s", result.Applied, result.Output)}
	}
}

func (m *Model) runPreview() tea.Cmd {
	cfg, svc, work := m.config, m.svc, m.workFile
	path := m.deltas[m.deltaCursor].Path
	return func() tea.Msg {
		result := svc.Restore(cfg, work, []string{path})
		if result.Error != nil {
			return previewMsg{err: result.Error}
		}

		restored, err := svc.ReadFile(result.Output)
		if err != nil {
			return previewMsg{err: err}
		}
		current, err := svc.ReadFile(work)
		if err != nil {
			return previewMsg{err: err}
		}

		diff := ComputeFileDiff(filepath.Base(result.Output), filepath.Base(work), restored, current)
		return previewMsg{result: diff}
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.view {
	case GenerationsView:
		content = m.renderGenerationsView()
	case DeltasView:
		content = m.renderDeltasView()
	case PreviewView:
		content = m.renderPreviewView()
	}

	return appStyle.Render(content)
}

func (m *Model) visibleHeight() int {
	h := m.height - 10
	if h < 5 {
		h = 5
	}
	return h
}

func (m *Model) renderGenerationsView() string {
	var b strings.Builder

	title := titleStyle.Render(fmt.Sprintf(" 📦 genbak · %s ", filepath.Base(m.workFile)))
	b.WriteString(title)
	b.WriteString("\n\n")

	if len(m.generations) == 0 {
		b.WriteString(dimStyle.Render("  No backups yet - press b to create the first generation"))
		b.WriteString("\n\n")
	} else {
		header := fmt.Sprintf("  %-6s %-24s %7s %10s %10s %s",
			"GEN", "DIRECTORY", "DELTAS", "BASE", "TOTAL", "CREATED")
		b.WriteString(dimStyle.Render(header))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(strings.Repeat("─", 75)))
		b.WriteString("\n")

		visibleHeight := m.visibleHeight()
		start := 0
		if m.genCursor >= visibleHeight {
			start = m.genCursor - visibleHeight + 1
		}

		for i := start; i < len(m.generations) && i < start+visibleHeight; i++ {
			g := m.generations[i]
			cursor := "  "
			style := normalStyle
			if i == m.genCursor {
				cursor = "▸ "
				style = selectedStyle
			}

			line := fmt.Sprintf("%s%-6d %-24s %7d %10s %10s %s",
				cursor, g.Index, truncate(filepath.Base(g.Dir), 24), g.Deltas,
				backup.FormatSize(g.BaseSize), backup.FormatSize(g.TotalSize), relativeTime(g.CreatedAt))
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}

	m.writeFooter(&b, "[↑/↓] navigate  [enter] deltas  [b] back up  [q] quit")
	return b.String()
}

func (m *Model) renderDeltasView() string {
	var b strings.Builder

	title := titleStyle.Render(fmt.Sprintf(" 📦 %s · generation %d ", filepath.Base(m.workFile), m.selectedIndex))
	b.WriteString(title)
	b.WriteString("\n\n")

	if len(m.deltas) == 0 {
		b.WriteString(dimStyle.Render("  No deltas in this generation"))
		b.WriteString("\n\n")
	} else {
		header := fmt.Sprintf("  %-3s %-19s %-7s %10s  %s",
			"", "TAKEN", "ALGO", "SIZE", "NOTE")
		b.WriteString(dimStyle.Render(header))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(strings.Repeat("─", 70)))
		b.WriteString("\n")

		visibleHeight := m.visibleHeight()
		start := 0
		if m.deltaCursor >= visibleHeight {
			start = m.deltaCursor - visibleHeight + 1
		}

		for i := start; i < len(m.deltas) && i < start+visibleHeight; i++ {
			d := m.deltas[i]
			cursor := "  "
			style := normalStyle
			if i == m.deltaCursor {
				cursor = "▸ "
				style = selectedStyle
			}
			mark := "[ ]"
			if m.selected[i] {
				mark = "[x]"
			}

			taken := d.Name
			if !d.CreatedAt.IsZero() {
				taken = d.CreatedAt.Format("2006-01-02 15:04:05")
			}
			algo := d.Algorithm
			if algo == "" {
				algo = delta.AlgorithmBsdiff
			}

			line := fmt.Sprintf("%s%s %-19s %-7s %10s  %s",
				cursor, mark, truncate(taken, 19), algo, backup.FormatSize(d.Size), truncate(d.Note, 30))
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}

	if n := len(m.selected); n > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d selected", n)))
		b.WriteString("\n")
	}

	m.writeFooter(&b, "[↑/↓] navigate  [space] select  [R] restore  [p] preview  [b] back up  [esc] back  [q] quit")
	return b.String()
}

func (m *Model) renderPreviewView() string {
	var b strings.Builder

	if m.preview == nil {
		return "Loading..."
	}

	title := titleStyle.Render(fmt.Sprintf(" 📄 %s ", m.preview.Left))
	b.WriteString(title)
	b.WriteString("\n")

	header := fmt.Sprintf("  %-35s │ %-35s", m.preview.Left, m.preview.Right)
	b.WriteString(dimStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 75)))
	b.WriteString("\n")

	switch {
	case m.preview.Error != "":
		b.WriteString(errorBadge.Render(m.preview.Error))
		b.WriteString("\n")
	case m.preview.Identical:
		b.WriteString(successBadge.Render("  Restored file matches the working file"))
		b.WriteString("\n")
	case m.preview.IsBinary:
		b.WriteString(dimStyle.Render("  Binary file - contents differ, line diff not available"))
		b.WriteString("\n")
	default:
		summary := fmt.Sprintf("  %s  %s",
			addedStyle.Render(fmt.Sprintf("+%d", m.preview.Added)),
			deletedStyle.Render(fmt.Sprintf("-%d", m.preview.Deleted)))
		b.WriteString(summary)
		b.WriteString("\n")

		visibleHeight := m.height - 12
		if visibleHeight < 5 {
			visibleHeight = 5
		}
		endIdx := m.previewScroll + visibleHeight
		if endIdx > len(m.preview.Lines) {
			endIdx = len(m.preview.Lines)
		}

		for i := m.previewScroll; i < endIdx; i++ {
			line := m.preview.Lines[i]

			ln1 := "   "
			ln2 := "   "
			if line.LineNum1 > 0 {
				ln1 = fmt.Sprintf("%3d", line.LineNum1)
			}
			if line.LineNum2 > 0 {
				ln2 = fmt.Sprintf("%3d", line.LineNum2)
			}

			content := line.Content
			maxWidth := 60
			if len(content) > maxWidth {
				content = content[:maxWidth-3] + "..."
			}

			switch line.Type {
			case '+':
				b.WriteString(addedStyle.Render(fmt.Sprintf("%s  + │ %s  + %s", ln1, ln2, content)))
			case '-':
				b.WriteString(deletedStyle.Render(fmt.Sprintf("%s  - │ %s  - %s", ln1, ln2, content)))
			default:
				b.WriteString(dimStyle.Render(fmt.Sprintf("%s    │ %s    %s", ln1, ln2, content)))
			}
			b.WriteString("\n")
		}

		if len(m.preview.Lines) > visibleHeight {
			scrollInfo := fmt.Sprintf("  Lines %d-%d of %d",
				m.previewScroll+1, endIdx, len(m.preview.Lines))
			b.WriteString(dimStyle.Render(scrollInfo))
			b.WriteString("\n")
		}
	}

	m.writeFooter(&b, "[↑/↓] scroll  [esc] back  [q] quit")
	return b.String()
}

func (m *Model) writeFooter(b *strings.Builder, help string) {
	b.WriteString("\n")
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorBadge.Render(m.statusMsg))
		} else {
			b.WriteString(successBadge.Render(m.statusMsg))
		}
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(help))
}

// Run starts the TUI for workFile
func Run(workFile string) error {
	out, closeLog := logOutput()
	defer closeLog()

	m, err := newProgramModel(tuisvc.New(), workFile, out)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// newProgramModel loads the model and points the logger at out with the
// configured level. Nothing may be logged to the terminal while the
// program owns it.
func newProgramModel(svc ports.TUIService, workFile string, out io.Writer) (*Model, error) {
	m, err := NewModelWithService(svc, workFile)
	if err != nil {
		return nil, err
	}
	if err := logging.Init(logging.FromConfig(m.config), out); err != nil {
		return nil, err
	}
	return m, nil
}

// logOutput opens ui.log next to the config file, falling back to
// io.Discard.
func logOutput() (io.Writer, func()) {
	path, err := config.ConfigPath()
	if err != nil {
		return io.Discard, func() {}
	}
	f, err := os.OpenFile(filepath.Join(filepath.Dir(path), "ui.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { _ = f.Close() }
}

// Helper functions
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	diff := time.Since(t)
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

func (m *Model) handleStatusMsg(msg statusMsg) {
	m.statusMsg = msg.msg
	m.statusErr = msg.err
	// Reload to reflect new deltas or generations
	_ = m.loadGenerations()
	if m.view == DeltasView {
		_ = m.loadDeltas()
	}
}

package apply

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/simonhull/roost/internal/config"
	"github.com/simonhull/roost/internal/diff"
)

// Resolution is the decision for one conflicting file
type Resolution int

const (
	Overwrite Resolution = iota
	Skip
	ShowDiff
	Cancel
)

func (r Resolution) String() string {
	switch r {
	case Overwrite:
		return "overwrite"
	case Skip:
		return "skip"
	case ShowDiff:
		return "show diff"
	default:
		return "cancel"
	}
}

// Conflict describes a generated file that would replace project content
// without a recorded merge intent.
type Conflict struct {
	Name     string // project-relative
	Path     string // project path
	Existing []byte
	Newer    []byte
}

// Strategy decides what to do with a conflicting file
type Strategy interface {
	Resolve(c Conflict) (Resolution, error)
}

var (
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("white")).Bold(true)
)

// NewStrategy returns the strategy for a sync.conflicts setting.
// Interactive strategies read keys from in and draw to out.
func NewStrategy(name string, in io.Reader, out io.Writer) (Strategy, error) {
	switch name {
	case "", config.ConflictsOverwrite:
		return OverwriteStrategy{}, nil
	case config.ConflictsSkip:
		return SkipStrategy{}, nil
	case config.ConflictsPrompt:
		return &PromptStrategy{In: in, Out: out}, nil
	case config.ConflictsDiff:
		return &PromptStrategy{In: in, Out: out, DiffFirst: true}, nil
	default:
		return nil, fmt.Errorf("unknown conflict strategy %q", name)
	}
}

// OverwriteStrategy replaces every conflicting file
type OverwriteStrategy struct{}

func (OverwriteStrategy) Resolve(Conflict) (Resolution, error) { return Overwrite, nil }

// SkipStrategy keeps every existing project file
type SkipStrategy struct{}

func (SkipStrategy) Resolve(Conflict) (Resolution, error) { return Skip, nil }

// PromptStrategy asks per file with a keyboard-driven menu. Choosing
// "show diff" displays the diff and returns to the menu.
type PromptStrategy struct {
	In        io.Reader
	Out       io.Writer
	DiffFirst bool

	// run drives a bubbletea model; swapped in tests
	run func(tea.Model) (tea.Model, error)
}

func (s *PromptStrategy) Resolve(c Conflict) (Resolution, error) {
	if s.DiffFirst {
		if cancelled, err := s.showDiff(c); err != nil || cancelled {
			return Cancel, err
		}
	}

	for {
		info, err := os.Stat(c.Path)
		if err != nil && !os.IsNotExist(err) {
			return Cancel, fmt.Errorf("failed to stat file: %w", err)
		}

		final, err := s.program(newConflictMenuModel(c.Name, info))
		if err != nil {
			return Cancel, fmt.Errorf("failed to show menu: %w", err)
		}

		menu := final.(conflictMenuModel)
		if menu.selected == nil {
			return Cancel, nil
		}
		if *menu.selected != ShowDiff {
			return *menu.selected, nil
		}
		if _, err := s.showDiff(c); err != nil {
			return Cancel, err
		}
	}
}

// showDiff prints short diffs inline and pages long ones in a viewport
func (s *PromptStrategy) showDiff(c Conflict) (bool, error) {
	text := diff.Styled(c.Name+" (project)", c.Name+" (generated)", c.Existing, c.Newer, diff.StyleOptions{})
	if text == "" {
		text = mutedStyle.Render("files are identical") + "\n"
	}

	if strings.Count(text, "\n") <= 20 {
		fmt.Fprintln(s.writer(), text)
		return false, nil
	}

	final, err := s.program(newDiffViewerModel(c.Name, text))
	if err != nil {
		return true, fmt.Errorf("failed to show diff: %w", err)
	}
	return final.(diffViewerModel).cancelled, nil
}

func (s *PromptStrategy) program(m tea.Model) (tea.Model, error) {
	if s.run != nil {
		return s.run(m)
	}
	opts := []tea.ProgramOption{tea.WithOutput(s.writer())}
	if s.In != nil {
		opts = append(opts, tea.WithInput(s.In))
	}
	if _, ok := m.(diffViewerModel); ok {
		opts = append(opts, tea.WithAltScreen())
	}
	return tea.NewProgram(m, opts...).Run()
}

func (s *PromptStrategy) writer() io.Writer {
	if s.Out != nil {
		return s.Out
	}
	return os.Stdout
}

type conflictMenuModel struct {
	name     string
	fileInfo os.FileInfo
	choices  []string
	cursor   int
	selected *Resolution
}

func newConflictMenuModel(name string, fileInfo os.FileInfo) conflictMenuModel {
	return conflictMenuModel{
		name:     name,
		fileInfo: fileInfo,
		choices: []string{
			"Show diff and decide",
			"Skip (keep project file)",
			"Overwrite (replace with generated file)",
			"Cancel sync",
		},
	}
}

func (m conflictMenuModel) Init() tea.Cmd {
	return nil
}

func (m conflictMenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "d":
		r := ShowDiff
		m.selected = &r
		return m, tea.Quit
	case "s":
		r := Skip
		m.selected = &r
		return m, tea.Quit
	case "o":
		r := Overwrite
		m.selected = &r
		return m, tea.Quit
	case "enter":
		r := choiceResolution(m.cursor)
		m.selected = &r
		return m, tea.Quit
	}
	return m, nil
}

func (m conflictMenuModel) View() string {
	var b strings.Builder

	b.WriteString(warningStyle.Render("⚠️  Conflicting file: ") + titleStyle.Render(m.name) + "\n")
	if m.fileInfo != nil {
		b.WriteString(mutedStyle.Render("    Last modified: ") + formatRelativeTime(m.fileInfo.ModTime()) + "\n")
		b.WriteString(mutedStyle.Render("    Size: ") + formatFileSize(m.fileInfo.Size()) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("    [↑/↓] Navigate    [Enter] Select    [d/s/o] Shortcut    [q] Cancel") + "\n\n")

	for i, choice := range m.choices {
		if m.cursor == i {
			b.WriteString("    " + selectedStyle.Render("> "+choice) + "\n")
		} else {
			b.WriteString("      " + choice + "\n")
		}
	}
	return b.String()
}

func choiceResolution(cursor int) Resolution {
	switch cursor {
	case 0:
		return ShowDiff
	case 1:
		return Skip
	case 2:
		return Overwrite
	default:
		return Cancel
	}
}

type diffViewerModel struct {
	name      string
	diff      string
	viewport  viewport.Model
	ready     bool
	cancelled bool
}

func newDiffViewerModel(name, diff string) diffViewerModel {
	return diffViewerModel{name: name, diff: diff}
}

func (m diffViewerModel) Init() tea.Cmd {
	return nil
}

func (m diffViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		case "q", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		const chrome = 4
		if !m.ready {
			m.viewport = viewport.New(msg.Width-2, msg.Height-chrome)
			m.viewport.SetContent(m.diff)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 2
			m.viewport.Height = msg.Height - chrome
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m diffViewerModel) View() string {
	if !m.ready {
		return "Loading diff..."
	}

	title := fmt.Sprintf("── Diff: %s ", m.name)
	rule := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(title)))
	footer := mutedStyle.Render(fmt.Sprintf(" %3.f%%  [↑/↓/pgup/pgdn] Scroll  [q] Back to menu", m.viewport.ScrollPercent()*100))

	return borderStyle.Render(title+rule) + "\n" + m.viewport.View() + "\n" + footer
}

func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	case d < 365*24*time.Hour:
		return plural(int(d.Hours()/24/30), "month")
	default:
		return plural(int(d.Hours()/24/365), "year")
	}
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

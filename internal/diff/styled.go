package diff

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan")).Bold(true)
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("22"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("52"))
	lineNumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Faint(true)
)

// StyleOptions configures terminal rendering
type StyleOptions struct {
	Options
	TabWidth     int  // default 4
	ShowLineNums bool // old-file line numbers in the margin
	Width        int  // 0 detects the terminal width
}

// Styled renders a colored diff for terminal display
func Styled(oldName, newName string, old, newer []byte, opts StyleOptions) string {
	hunks, summary := compute(old, newer, opts.Options.withDefaults())
	if summary != "" {
		return summary
	}
	if len(hunks) == 0 {
		return ""
	}

	if opts.TabWidth <= 0 {
		opts.TabWidth = 4
	}
	width := opts.Width
	if width <= 0 {
		width = terminalWidth()
	}

	var buf strings.Builder
	buf.WriteString(headerStyle.Render("--- "+oldName) + "\n")
	buf.WriteString(headerStyle.Render("+++ "+newName) + "\n")

	for _, h := range hunks {
		buf.WriteString(hunkStyle.Render(h.Header()) + "\n")
		for _, l := range h.lines {
			text := truncate(expandTabs(l.text, opts.TabWidth), width-10)
			row := prefix(l.op) + text
			switch l.op {
			case opInsert:
				row = addedStyle.Render(row)
			case opDelete:
				row = removedStyle.Render(row)
			}

			if opts.ShowLineNums {
				num := "    "
				if l.op != opInsert {
					num = fmt.Sprintf("%4d", l.oldIdx+1)
				}
				row = lineNumStyle.Render(num) + " " + row
			}
			buf.WriteString(row + "\n")
		}
	}
	return buf.String()
}

func expandTabs(s string, tabWidth int) string {
	var buf strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			spaces := tabWidth - col%tabWidth
			buf.WriteString(strings.Repeat(" ", spaces))
			col += spaces
			continue
		}
		buf.WriteRune(r)
		col++
	}
	return buf.String()
}

func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = 80
	}
	if utf8.RuneCountInString(s) <= maxWidth {
		return s
	}
	if maxWidth < 3 {
		return "..."[:maxWidth]
	}
	return string([]rune(s)[:maxWidth-3]) + "..."
}

// terminalWidth returns the stdout width, defaulting to 80
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

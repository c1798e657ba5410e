package postaction

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrAnchorNotFound is returned when a fragment line that must already exist
// in the base file cannot be located.
var ErrAnchorNotFound = errors.New("anchor line not found")

// Fragment directives. Each may follow any common line-comment token so
// fragments stay valid in the target language, e.g. "//{[{", "#{[{", "<!--{[{-->".
var (
	intentRe     = regexp.MustCompile(`^\s*(?://|#|--|'|<!--)\s*\^\^\s*(.*?)\s*(?:-->)?\s*$`)
	blockOpenRe  = regexp.MustCompile(`^\s*(?://|#|--|'|<!--)\s*\{\[\{`)
	blockCloseRe = regexp.MustCompile(`^\s*(?://|#|--|'|<!--)\s*\}\]\}`)
)

// Fragment is a parsed merge fragment
type Fragment struct {
	Intent string // from a leading "^^" directive, empty when absent
	Code   string // fragment text without the intent directive
	steps  []step
}

type step struct {
	anchor string   // line that must exist in the base
	block  []string // lines to insert after the last anchor
}

// ParseFragment splits fragment text into anchors and insertion blocks
func ParseFragment(text string) (*Fragment, error) {
	lines := splitLines(text)
	f := &Fragment{}

	if len(lines) > 0 {
		if m := intentRe.FindStringSubmatch(lines[0]); m != nil {
			f.Intent = m[1]
			lines = lines[1:]
		}
	}
	f.Code = strings.TrimRight(strings.Join(lines, "\n"), "\n")

	var block []string
	inBlock := false
	for i, line := range lines {
		switch {
		case blockOpenRe.MatchString(line):
			if inBlock {
				return nil, fmt.Errorf("line %d: nested insertion block", i+1)
			}
			inBlock = true
			block = nil
		case blockCloseRe.MatchString(line):
			if !inBlock {
				return nil, fmt.Errorf("line %d: unmatched block close", i+1)
			}
			inBlock = false
			if len(block) > 0 {
				f.steps = append(f.steps, step{block: block})
			}
		case inBlock:
			block = append(block, line)
		case strings.TrimSpace(line) != "":
			f.steps = append(f.steps, step{anchor: line})
		}
	}
	if inBlock {
		return nil, errors.New("unterminated insertion block")
	}

	return f, nil
}

// Apply merges the fragment into base. Anchors are matched in order with
// surrounding whitespace ignored; each block is inserted after the most
// recently matched anchor unless the same lines are already there.
func (f *Fragment) Apply(base string) (string, error) {
	newline := "\n"
	if strings.Contains(base, "\r\n") {
		newline = "\r\n"
	}
	lines := splitLines(base)

	out := make([]string, 0, len(lines))
	pos := 0
	for _, s := range f.steps {
		if s.block == nil {
			j := indexTrimmed(lines, pos, s.anchor)
			if j < 0 {
				return "", fmt.Errorf("%w: %q", ErrAnchorNotFound, strings.TrimSpace(s.anchor))
			}
			out = append(out, lines[pos:j+1]...)
			pos = j + 1
			continue
		}
		if hasPrefixTrimmed(lines[pos:], s.block) {
			continue
		}
		out = append(out, s.block...)
	}
	out = append(out, lines[pos:]...)

	return strings.Join(out, newline), nil
}

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func indexTrimmed(lines []string, from int, want string) int {
	want = strings.TrimSpace(want)
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == want {
			return i
		}
	}
	return -1
}

func hasPrefixTrimmed(lines, prefix []string) bool {
	if len(prefix) > len(lines) {
		return false
	}
	for i := range prefix {
		if strings.TrimSpace(lines[i]) != strings.TrimSpace(prefix[i]) {
			return false
		}
	}
	return true
}

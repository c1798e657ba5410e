// Package diff renders line-based unified diffs, plain for markdown reports
// and styled for terminal review of conflicting files.
package diff

import (
	"bytes"
	"fmt"
	"strings"
)

// Options configures diff rendering. Zero values get defaults.
type Options struct {
	ContextLines int // unchanged lines around each change, default 3
	MaxLines     int // larger inputs are summarized instead of diffed, default 10000
}

func (o Options) withDefaults() Options {
	if o.ContextLines <= 0 {
		o.ContextLines = 3
	}
	if o.MaxLines <= 0 {
		o.MaxLines = 10000
	}
	return o
}

type op int

const (
	opEqual op = iota
	opInsert
	opDelete
)

// line is one entry of an edit script. oldIdx and newIdx are the positions in
// each input before this line is consumed.
type line struct {
	op     op
	text   string
	oldIdx int
	newIdx int
}

// Hunk is a contiguous group of changes with surrounding context
type Hunk struct {
	OldStart, OldCount int
	NewStart, NewCount int
	lines              []line
}

// Header returns the "@@ -a,b +c,d @@" hunk header
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
}

// Equal reports whether old and newer have the same lines
func Equal(old, newer []byte) bool {
	return bytes.Equal(normalize(old), normalize(newer))
}

// Unified returns a plain unified diff, or "" when the inputs match.
// Binary and oversized inputs yield a one-line summary.
func Unified(oldName, newName string, old, newer []byte, opts Options) string {
	hunks, summary := compute(old, newer, opts.withDefaults())
	if summary != "" {
		return summary
	}
	if len(hunks) == 0 {
		return ""
	}

	var buf strings.Builder
	buf.WriteString("--- " + oldName + "\n")
	buf.WriteString("+++ " + newName + "\n")
	for _, h := range hunks {
		buf.WriteString(h.Header() + "\n")
		for _, l := range h.lines {
			buf.WriteString(prefix(l.op) + l.text + "\n")
		}
	}
	return buf.String()
}

// Hunks returns the change hunks between old and newer
func Hunks(old, newer []byte, opts Options) []Hunk {
	hunks, _ := compute(old, newer, opts.withDefaults())
	return hunks
}

func compute(old, newer []byte, opts Options) ([]Hunk, string) {
	if isBinary(old) || isBinary(newer) {
		return nil, "Binary files differ\n"
	}

	a := splitLines(string(normalize(old)))
	b := splitLines(string(normalize(newer)))
	if len(a) > opts.MaxLines || len(b) > opts.MaxLines {
		return nil, fmt.Sprintf("Files too large for diff (%d and %d lines)\n", len(a), len(b))
	}

	return group(editScript(a, b), opts.ContextLines), ""
}

// editScript computes a shortest edit script with Myers' O(ND) algorithm.
func editScript(a, b []string) []line {
	n, m := len(a), len(b)
	maxD := n + m
	if maxD == 0 {
		return nil
	}

	offset := maxD + 1
	v := make([]int, 2*maxD+3)
	var trace [][]int

	for d := 0; d <= maxD; d++ {
		trace = append(trace, append([]int(nil), v...))

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				return backtrack(a, b, trace, offset)
			}
		}
	}
	return nil
}

func backtrack(a, b []string, trace [][]int, offset int) []line {
	x, y := len(a), len(b)
	var rev []line

	for d := len(trace) - 1; d >= 0; d-- {
		v := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := v[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			rev = append(rev, line{op: opEqual, text: a[x], oldIdx: x, newIdx: y})
		}
		if d == 0 {
			break
		}
		if x == prevX {
			y--
			rev = append(rev, line{op: opInsert, text: b[y], oldIdx: x, newIdx: y})
		} else {
			x--
			rev = append(rev, line{op: opDelete, text: a[x], oldIdx: x, newIdx: y})
		}
	}

	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// group splits an edit script into hunks. Changes separated by no more than
// 2*context unchanged lines share a hunk.
func group(script []line, context int) []Hunk {
	var hunks []Hunk
	i := 0
	for i < len(script) {
		for i < len(script) && script[i].op == opEqual {
			i++
		}
		if i == len(script) {
			break
		}

		start := max(0, i-context)
		end := i
		for end < len(script) {
			if script[end].op != opEqual {
				end++
				continue
			}
			run := end
			for run < len(script) && script[run].op == opEqual {
				run++
			}
			if run == len(script) || run-end > 2*context {
				end = min(run, end+context)
				break
			}
			end = run
		}

		hunks = append(hunks, newHunk(script[start:end]))
		i = end
	}
	return hunks
}

func newHunk(lines []line) Hunk {
	h := Hunk{lines: lines}
	for _, l := range lines {
		if l.op != opInsert {
			h.OldCount++
		}
		if l.op != opDelete {
			h.NewCount++
		}
	}
	first := lines[0]
	h.OldStart = first.oldIdx
	h.NewStart = first.newIdx
	if h.OldCount > 0 {
		h.OldStart++
	}
	if h.NewCount > 0 {
		h.NewStart++
	}
	return h
}

func prefix(o op) string {
	switch o {
	case opInsert:
		return "+"
	case opDelete:
		return "-"
	default:
		return " "
	}
}

func isBinary(data []byte) bool {
	n := min(len(data), 8192)
	return bytes.IndexByte(data[:n], 0) != -1
}

func normalize(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
}

// splitLines splits content into lines, dropping the empty tail left by a
// final newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

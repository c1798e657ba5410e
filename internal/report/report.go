// Package report writes the markdown summaries of a generation cycle: the
// manual steps document for output-only cycles and the applied changes
// summary for sync cycles.
package report

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/simonhull/roost/internal/apply"
	"github.com/simonhull/roost/internal/diff"
	"github.com/simonhull/roost/internal/fsutil"
	"github.com/simonhull/roost/internal/genctx"
	"github.com/simonhull/roost/internal/logger"
	"github.com/simonhull/roost/internal/reconcile"
)

// Report file names. The manual steps report is written to the scratch root;
// the sync summary to SyncDir when set.
const (
	OutputFileName = "Steps to include new item generation.md"
	SyncFileName   = "GenerationSummary.md"
)

// Builder renders and writes reports
type Builder struct {
	ConflictDiffs bool // embed project-vs-generated diffs for conflicting files
	HTML          bool // also write an .html rendering next to each report
	// SyncDir holds sync summaries in a per-cycle subdirectory so they
	// outlive scratch cleanup. Empty writes them to the scratch root.
	SyncDir string
	Logger  logger.Logger
}

// WriteOutput writes the manual steps report and registers it to be opened.
// It returns the paths written.
func (b *Builder) WriteOutput(gctx *genctx.Context, result *reconcile.Result) ([]string, error) {
	var diffs map[string]string
	if b.ConflictDiffs {
		diffs = ConflictDiffs(result.Conflicting)
	}
	text := Output(gctx.Ledger.Entries(), result, diffs)
	return b.write(gctx, gctx.OutputPath, OutputFileName, text)
}

// WriteSync writes the applied changes summary and registers it to be opened.
// copied may be nil when nothing was applied.
func (b *Builder) WriteSync(gctx *genctx.Context, result *reconcile.Result, copied *apply.Report) ([]string, error) {
	text := Sync(gctx.Ledger.Entries(), result, copied)
	dir := gctx.OutputPath
	if b.SyncDir != "" {
		dir = filepath.Join(b.SyncDir, gctx.ID)
	}
	return b.write(gctx, dir, SyncFileName, text)
}

func (b *Builder) write(gctx *genctx.Context, dir, name, text string) ([]string, error) {
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	gctx.AddFileToOpen(path)
	written := []string{path}

	if b.HTML {
		htmlPath, err := RenderHTML(path)
		if err != nil {
			return written, err
		}
		gctx.AddFileToOpen(htmlPath)
		written = append(written, htmlPath)
	}

	if b.Logger != nil {
		b.Logger.Debug("report written", logger.F("path", path))
	}
	return written, nil
}

// Output renders the manual steps report. Links point at scratch files by
// their bare relative names.
func Output(entries []genctx.Entry, result *reconcile.Result, diffs map[string]string) string {
	w := &writer{}
	w.lines("# Steps to include new item generation",
		"You have to follow these steps to include the new item into your project")

	if len(result.New) > 0 {
		w.lines("## New files:", "Copy and add those files to your project:")
		for _, f := range result.New {
			w.lines(localLink(f))
		}
	}

	w.lines("## Modified files:", "Apply these changes in the following files:", "")
	for _, e := range entries {
		w.lines(fmt.Sprintf("### Changes in File '%s':", e.Path), "")
		w.records(e.Records)
	}

	if len(result.Conflicting) > 0 {
		w.lines("## Conflicting files:", "")
		for _, f := range result.Conflicting {
			w.lines(localLink(f))
		}
		for _, f := range result.Conflicting {
			d, ok := diffs[f.Name]
			if !ok || d == "" {
				continue
			}
			w.lines("", fmt.Sprintf("### Differences in File '%s':", f.Name), "")
			w.block("diff", strings.TrimRight(d, "\n"))
		}
	}

	return w.String()
}

// Sync renders the applied changes summary. A ledger entry whose file was
// not reconciled as Modified, or failed to copy, is called out for manual
// application. A dry run report words every change as pending. Links point at
// escaped project paths.
func Sync(entries []genctx.Entry, result *reconcile.Result, copied *apply.Report) string {
	failed := map[string]error{}
	if copied != nil {
		for _, f := range copied.Failed {
			failed[f.File] = f.Err
		}
	}

	dryRun := copied != nil && copied.DryRun
	applied := "The following changes were applied:"

	w := &writer{}
	if dryRun {
		w.lines("# Generation summary", "Dry run: nothing was written to your project")
		applied = "The following changes would be applied:"
	} else {
		w.lines("# Generation summary", "The following changes have been incorporated in your project")
	}

	w.lines("## Modified files:")
	for _, e := range entries {
		w.lines(fmt.Sprintf("### Changes in File '%s':", e.Path), "")

		f, class, ok := result.Find(e.Path)
		_, copyFailed := failed[e.Path]
		if ok && class == reconcile.Modified && !copyFailed {
			w.lines(fmt.Sprintf("See the final result: [%s](%s)", f.Name, EscapePath(f.ProjectPath)), "")
			w.lines(applied)
		} else {
			w.lines("The changes could not be applied, please apply the following changes manually:", "")
		}
		w.records(e.Records)
	}

	if len(result.New) > 0 {
		w.lines("## New files:", "")
		for _, f := range result.New {
			w.lines(projectLink(f))
		}
	}

	var conflicting, skipped []reconcile.FileInfo
	for _, f := range result.Conflicting {
		if copied != nil && copied.IsSkipped(f.Name) {
			skipped = append(skipped, f)
		} else {
			conflicting = append(conflicting, f)
		}
	}

	if len(conflicting) > 0 {
		w.lines("## Conflicting files:", "")
		for _, f := range conflicting {
			w.lines(projectLink(f))
		}
	}

	if len(skipped) > 0 {
		w.lines("## Skipped files:", "These files already existed and were kept unchanged:", "")
		for _, f := range skipped {
			w.lines(projectLink(f))
		}
	}

	if copied != nil && len(copied.Failed) > 0 {
		w.lines("## Failed copies:", "These files could not be copied to your project:", "")
		for _, f := range copied.Failed {
			w.lines(fmt.Sprintf("* %s: %v", f.File, f.Err))
		}
	}

	return w.String()
}

// ConflictDiffs computes project-vs-generated diffs for conflicting files.
// Unreadable files are left out.
func ConflictDiffs(files []reconcile.FileInfo) map[string]string {
	diffs := make(map[string]string, len(files))
	for _, f := range files {
		existing, err := os.ReadFile(f.ProjectPath)
		if err != nil {
			continue
		}
		generated, err := os.ReadFile(f.OutputPath)
		if err != nil {
			continue
		}
		diffs[f.Name] = diff.Unified("project/"+f.Name, "generated/"+f.Name, existing, generated, diff.Options{})
	}
	return diffs
}

// EscapePath percent-escapes an absolute path for use as a markdown link
// target, keeping separators.
func EscapePath(p string) string {
	u := url.URL{Path: filepath.ToSlash(p)}
	return u.EscapedPath()
}

func localLink(f reconcile.FileInfo) string {
	return fmt.Sprintf("* [%s](%s)", f.Name, f.Name)
}

func projectLink(f reconcile.FileInfo) string {
	return fmt.Sprintf("* [%s](%s)", f.Name, EscapePath(f.ProjectPath))
}

type writer struct {
	strings.Builder
}

func (w *writer) lines(lines ...string) {
	for _, l := range lines {
		w.WriteString(l)
		w.WriteByte('\n')
	}
}

func (w *writer) block(format, code string) {
	w.lines("```"+format, code, "```", "")
}

func (w *writer) records(records []genctx.MergeRecord) {
	for _, r := range records {
		w.lines(r.Intent, "")
		w.block(r.Format, r.PostActionCode)
	}
}

package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/simonhull/roost/internal/apply"
	"github.com/simonhull/roost/internal/genctx"
	"github.com/simonhull/roost/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileInfo(name string) reconcile.FileInfo {
	return reconcile.FileInfo{
		Name:        name,
		OutputPath:  "/scratch/" + name,
		ProjectPath: "/projects/My App/" + name,
	}
}

func abcResult() *reconcile.Result {
	return &reconcile.Result{
		New:         []reconcile.FileInfo{fileInfo("A.txt")},
		Modified:    []reconcile.FileInfo{fileInfo("B.txt")},
		Conflicting: []reconcile.FileInfo{fileInfo("C.txt")},
	}
}

func ledgerEntries() []genctx.Entry {
	return []genctx.Entry{{
		Path:    "B.txt",
		Records: []genctx.MergeRecord{{Intent: "Add the B line", Format: "txt", PostActionCode: "b\n//{[{\nmore\n//}]}"}},
	}}
}

func TestOutput(t *testing.T) {
	got := Output(ledgerEntries(), abcResult(), nil)

	want := strings.Join([]string{
		"# Steps to include new item generation",
		"You have to follow these steps to include the new item into your project",
		"## New files:",
		"Copy and add those files to your project:",
		"* [A.txt](A.txt)",
		"## Modified files:",
		"Apply these changes in the following files:",
		"",
		"### Changes in File 'B.txt':",
		"",
		"Add the B line",
		"",
		"```txt",
		"b",
		"//{[{",
		"more",
		"//}]}",
		"```",
		"",
		"## Conflicting files:",
		"",
		"* [C.txt](C.txt)",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestOutput_OmitsEmptySections(t *testing.T) {
	got := Output(nil, &reconcile.Result{}, nil)

	assert.NotContains(t, got, "## New files:")
	assert.NotContains(t, got, "## Conflicting files:")
	assert.Contains(t, got, "## Modified files:")
}

func TestOutput_ConflictDiffs(t *testing.T) {
	dir := t.TempDir()
	c := reconcile.FileInfo{
		Name:        "C.txt",
		OutputPath:  filepath.Join(dir, "out.txt"),
		ProjectPath: filepath.Join(dir, "proj.txt"),
	}
	require.NoError(t, os.WriteFile(c.ProjectPath, []byte("old\n"), 0644))
	require.NoError(t, os.WriteFile(c.OutputPath, []byte("new\n"), 0644))

	result := &reconcile.Result{Conflicting: []reconcile.FileInfo{c}}
	got := Output(nil, result, ConflictDiffs(result.Conflicting))

	assert.Contains(t, got, "### Differences in File 'C.txt':")
	assert.Contains(t, got, "```diff\n--- project/C.txt\n+++ generated/C.txt\n")
	assert.Contains(t, got, "-old\n+new\n```")
}

func TestSync(t *testing.T) {
	got := Sync(ledgerEntries(), abcResult(), &apply.Report{Copied: []string{"B.txt", "C.txt", "A.txt"}})

	want := strings.Join([]string{
		"# Generation summary",
		"The following changes have been incorporated in your project",
		"## Modified files:",
		"### Changes in File 'B.txt':",
		"",
		"See the final result: [B.txt](/projects/My%20App/B.txt)",
		"",
		"The following changes were applied:",
		"Add the B line",
		"",
		"```txt",
		"b",
		"//{[{",
		"more",
		"//}]}",
		"```",
		"",
		"## New files:",
		"",
		"* [A.txt](/projects/My%20App/A.txt)",
		"## Conflicting files:",
		"",
		"* [C.txt](/projects/My%20App/C.txt)",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestSync_DryRun(t *testing.T) {
	got := Sync(ledgerEntries(), abcResult(), &apply.Report{Copied: []string{"A.txt", "B.txt", "C.txt"}, DryRun: true})

	assert.Contains(t, got, "# Generation summary\nDry run: nothing was written to your project\n")
	assert.Contains(t, got, "The following changes would be applied:")
	assert.NotContains(t, got, "incorporated in your project")
	assert.NotContains(t, got, "were applied")
}

func TestSync_ConflictingLedgerEntryIsNotApplied(t *testing.T) {
	result := &reconcile.Result{Conflicting: []reconcile.FileInfo{fileInfo("B.txt")}}

	got := Sync(ledgerEntries(), result, &apply.Report{Copied: []string{"B.txt"}})

	assert.Contains(t, got, "### Changes in File 'B.txt':\n\nThe changes could not be applied, please apply the following changes manually:\n")
	assert.NotContains(t, got, "See the final result")
	assert.NotContains(t, got, "were applied")
}

func TestSync_UnappliedLedgerEntry(t *testing.T) {
	entries := []genctx.Entry{{Path: "D.txt", Records: []genctx.MergeRecord{{Intent: "Register D", Format: "txt", PostActionCode: "d"}}}}

	got := Sync(entries, abcResult(), &apply.Report{})

	assert.Contains(t, got, "### Changes in File 'D.txt':\n\nThe changes could not be applied, please apply the following changes manually:\n")
	assert.Contains(t, got, "Register D")
	assert.NotContains(t, got, "See the final result: [D.txt]")
}

func TestSync_FailedCopyIsNotApplied(t *testing.T) {
	copied := &apply.Report{Failed: []apply.Failure{{File: "B.txt", Err: errors.New("permission denied")}}}

	got := Sync(ledgerEntries(), abcResult(), copied)

	assert.Contains(t, got, "The changes could not be applied")
	assert.Contains(t, got, "## Failed copies:")
	assert.Contains(t, got, "* B.txt: permission denied")
}

func TestSync_SkippedConflicts(t *testing.T) {
	copied := &apply.Report{Skipped: []string{"C.txt"}}

	got := Sync(nil, abcResult(), copied)

	assert.NotContains(t, got, "## Conflicting files:")
	assert.Contains(t, got, "## Skipped files:")
	assert.Contains(t, got, "* [C.txt](/projects/My%20App/C.txt)")
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/home/user/project/a.go", "/home/user/project/a.go"},
		{"/home/user/My Project/a.go", "/home/user/My%20Project/a.go"},
		{"/p/C#/Program.cs", "/p/C%23/Program.cs"},
		{"/p/100%/x", "/p/100%25/x"},
		{"/p/café/x", "/p/caf%C3%A9/x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapePath(tt.in), tt.in)
	}
}

func TestBuilder_WriteRegistersFiles(t *testing.T) {
	gctx, err := genctx.Begin(t.TempDir(), t.TempDir())
	require.NoError(t, err)
	gctx.Ledger.Add("B.txt", genctx.MergeRecord{Intent: "x", Format: "txt", PostActionCode: "y"})

	b := &Builder{HTML: true}
	paths, err := b.WriteSync(gctx, &reconcile.Result{}, nil)
	require.NoError(t, err)

	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(gctx.OutputPath, SyncFileName), paths[0])
	assert.Equal(t, filepath.Join(gctx.OutputPath, "GenerationSummary.html"), paths[1])
	assert.Equal(t, paths, gctx.FilesToOpen())

	page, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h1 id=\"generation-summary\">Generation summary</h1>")
	assert.Contains(t, string(page), "<title>GenerationSummary</title>")
}

func TestBuilder_SyncDirOutlivesScratch(t *testing.T) {
	scratch := t.TempDir()
	gctx, err := genctx.Begin(t.TempDir(), scratch)
	require.NoError(t, err)
	gctx.TempRoot = scratch
	reports := t.TempDir()

	b := &Builder{SyncDir: reports}
	paths, err := b.WriteSync(gctx, &reconcile.Result{}, nil)
	require.NoError(t, err)

	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(reports, gctx.ID, SyncFileName), paths[0])
	require.NoError(t, gctx.End())
	assert.FileExists(t, paths[0])
}

func TestBuilder_WriteOutput(t *testing.T) {
	gctx, err := genctx.Begin(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	b := &Builder{}
	paths, err := b.WriteOutput(gctx, &reconcile.Result{New: []reconcile.FileInfo{{Name: "A.txt"}}})
	require.NoError(t, err)

	require.Len(t, paths, 1)
	assert.Equal(t, OutputFileName, filepath.Base(paths[0]))
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "* [A.txt](A.txt)")
}

func TestToHTML(t *testing.T) {
	out, err := ToHTML([]byte("## New files:\n\n* [a b.txt](/x/a%20b.txt)\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `<a href="/x/a%20b.txt">a b.txt</a>`)
}

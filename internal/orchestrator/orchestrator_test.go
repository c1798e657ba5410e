package orchestrator

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/simonhull/roost/internal/apply"
	"github.com/simonhull/roost/internal/genctx"
	"github.com/simonhull/roost/internal/logger"
	"github.com/simonhull/roost/internal/postaction"
	"github.com/simonhull/roost/internal/report"
	"github.com/simonhull/roost/internal/telemetry"
	"github.com/simonhull/roost/internal/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// snapshot returns every file under root with its content
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, p)
		files[rel] = readFile(t, p)
		return nil
	})
	require.NoError(t, err)
	return files
}

type fakeHost struct {
	errors  []error
	cancels int
}

func (h *fakeHost) ShowError(err error) { h.errors = append(h.errors, err) }
func (h *fakeHost) CancelWizard(bool) { h.cancels++ }

type fakeOpener struct {
	opened []string
}

func (o *fakeOpener) OpenFiles(_ context.Context, paths []string) error {
	o.opened = append(o.opened, paths...)
	return nil
}

type fakeRunner struct {
	ran    []string
	failOn string
}

func (r *fakeRunner) Run(_ context.Context, _ string, name string, _ ...string) error {
	r.ran = append(r.ran, name)
	if name == r.failOn {
		return errors.New(name + " exited with status 1")
	}
	return nil
}

type fakeTracker struct {
	items      int
	exceptions []string
}

func (f *fakeTracker) TrackProjectGen(telemetry.ProjectGen) error { return nil }
func (f *fakeTracker) TrackItemGen(telemetry.ItemGen) error {
	f.items++
	return nil
}
func (f *fakeTracker) TrackException(_ error, msg string) { f.exceptions = append(f.exceptions, msg) }

type fixedStrategy apply.Resolution

func (s fixedStrategy) Resolve(apply.Conflict) (apply.Resolution, error) {
	return apply.Resolution(s), nil
}

type recordingStrategy struct {
	seen []string
}

func (s *recordingStrategy) Resolve(c apply.Conflict) (apply.Resolution, error) {
	s.seen = append(s.seen, c.Name)
	return apply.Overwrite, nil
}

type panicStrategy struct{}

func (panicStrategy) Resolve(apply.Conflict) (apply.Resolution, error) {
	panic("strategy exploded")
}

type panicEngine struct{}

func (panicEngine) Generate(context.Context, *genctx.Context, templates.GenInfo) (templates.Result, error) {
	panic("engine exploded")
}

type env struct {
	project string
	gctx    *genctx.Context
	ctrl    *Controller
	host    *fakeHost
	opener  *fakeOpener
	runner  *fakeRunner
	tracker *fakeTracker
}

// newEnv sets up a project holding B.txt and C.txt and a "demo" template
// producing A.txt, C.txt and a merge fragment for B.txt. The "app" template
// generates App.txt with a fragment whose anchor never matches.
func newEnv(t *testing.T) *env {
	t.Helper()

	project := t.TempDir()
	writeFile(t, filepath.Join(project, "B.txt"), "line1\nline2\n")
	writeFile(t, filepath.Join(project, "C.txt"), "project version\n")

	catalogRoot := t.TempDir()
	writeFile(t, filepath.Join(catalogRoot, "demo", templates.ManifestFile), "identity: demo\ntype: page\n")
	content := filepath.Join(catalogRoot, "demo", templates.ContentDir)
	writeFile(t, filepath.Join(content, "A.txt.tmpl"), "hello {{.Name}}\n")
	writeFile(t, filepath.Join(content, "C.txt"), "generated version\n")
	writeFile(t, filepath.Join(content, "B_postaction.txt"), "#^^ Register the new item\nline1\n#{[{\nadded\n#}]}\n")

	writeFile(t, filepath.Join(catalogRoot, "app", templates.ManifestFile), "identity: app\ntype: page\n")
	appContent := filepath.Join(catalogRoot, "app", templates.ContentDir)
	writeFile(t, filepath.Join(appContent, "App.txt"), "generated\n")
	writeFile(t, filepath.Join(appContent, "App_postaction.txt"), "#^^ Wire the item\nno such line\n#{[{\nwired\n#}]}\n")

	catalog, err := templates.LoadCatalog(catalogRoot)
	require.NoError(t, err)

	gctx, err := genctx.Begin(project, t.TempDir())
	require.NoError(t, err)

	e := &env{
		project: project,
		gctx:    gctx,
		host:    &fakeHost{},
		opener:  &fakeOpener{},
		runner:  &fakeRunner{},
		tracker: &fakeTracker{},
	}
	log := logger.NewSilentLogger()
	e.ctrl = &Controller{
		Catalog:  catalog,
		Engine:   templates.NewDirEngine("example.com/app", "web", "gin"),
		Registry: &postaction.Registry{Opener: e.opener, Logger: log},
		Executor: &postaction.Executor{Logger: log},
		Tracker:  e.tracker,
		Host:     e.host,
		Logger:   log,
		Options:  Options{Progress: io.Discard},
	}
	return e
}

func (e *env) generate(t *testing.T) {
	t.Helper()
	out := e.ctrl.GenerateNewItem(context.Background(), e.gctx, templates.UserSelection{
		ProjectType: "web",
		Framework:   "gin",
		Items:       []templates.SelectedItem{{TemplateID: "demo", Name: "Demo"}},
	})
	require.True(t, out.OK(), "generation failed: %v", out.Err())
}

func TestGenerateNewItem(t *testing.T) {
	e := newEnv(t)
	e.generate(t)

	assert.Equal(t, "hello Demo\n", readFile(t, e.gctx.OutputFile("A.txt")))
	assert.Equal(t, "line1\nadded\nline2\n", readFile(t, e.gctx.OutputFile("B.txt")))
	assert.True(t, e.gctx.Ledger.Has("B.txt"))
	assert.Equal(t, "Register the new item", e.gctx.Ledger.Get("B.txt")[0].Intent)
	assert.Equal(t, 1, e.tracker.items)
	assert.Empty(t, e.host.errors)
}

func TestGenerateNewItem_UnknownTemplate(t *testing.T) {
	e := newEnv(t)

	out := e.ctrl.GenerateNewItem(context.Background(), e.gctx, templates.UserSelection{
		Items: []templates.SelectedItem{{TemplateID: "missing"}},
	})

	require.False(t, out.OK())
	assert.Equal(t, GenerationFailure, out.Failure.Kind)
	assert.Len(t, e.host.errors, 1)
	assert.Equal(t, 1, e.host.cancels)
	assert.Len(t, e.tracker.exceptions, 1)
	assert.Empty(t, snapshot(t, e.gctx.OutputPath))
}

func TestSyncNewItem(t *testing.T) {
	e := newEnv(t)
	e.generate(t)

	out := e.ctrl.SyncNewItem(context.Background(), e.gctx)
	require.True(t, out.OK(), "sync failed: %v", out.Err())

	assert.Equal(t, "hello Demo\n", readFile(t, filepath.Join(e.project, "A.txt")))
	assert.Equal(t, "line1\nadded\nline2\n", readFile(t, filepath.Join(e.project, "B.txt")))
	assert.Equal(t, "generated version\n", readFile(t, filepath.Join(e.project, "C.txt")))
	_, err := os.Stat(filepath.Join(e.project, "B$Demo_postaction.txt"))
	assert.True(t, os.IsNotExist(err), "fragments never reach the project")

	require.NotNil(t, out.Copy)
	assert.ElementsMatch(t, []string{"A.txt", "B.txt", "C.txt"}, out.Copy.Copied)

	require.Len(t, out.Reports, 1)
	summary := readFile(t, out.Reports[0])
	assert.Equal(t, report.SyncFileName, filepath.Base(out.Reports[0]))
	assert.Contains(t, summary, "### Changes in File 'B.txt':")
	assert.Contains(t, summary, "The following changes were applied:")
	assert.Contains(t, summary, "## New files:")
	assert.Contains(t, summary, "## Conflicting files:")

	assert.Equal(t, out.Reports, e.opener.opened)
	assert.Empty(t, e.host.errors)
	assert.Zero(t, e.host.cancels)
}

func TestSyncNewItem_FailedMergeGoesThroughStrategy(t *testing.T) {
	e := newEnv(t)
	writeFile(t, filepath.Join(e.project, "App.txt"), "user content\n")
	e.ctrl.Options.Strategy = fixedStrategy(apply.Skip)

	out := e.ctrl.GenerateNewItem(context.Background(), e.gctx, templates.UserSelection{
		Items: []templates.SelectedItem{{TemplateID: "app", Name: "Item"}},
	})
	require.True(t, out.OK(), "generation failed: %v", out.Err())
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "App$Item_postaction.txt")

	out = e.ctrl.SyncNewItem(context.Background(), e.gctx)
	require.True(t, out.OK(), "sync failed: %v", out.Err())

	assert.Equal(t, "user content\n", readFile(t, filepath.Join(e.project, "App.txt")))
	assert.Equal(t, []string{"App.txt"}, out.Copy.Skipped)
	assert.NotContains(t, out.Copy.Copied, "App.txt")

	summary := readFile(t, out.Reports[0])
	idx := strings.Index(summary, "### Changes in File 'App.txt':")
	require.GreaterOrEqual(t, idx, 0)
	assert.Contains(t, summary[idx:], "The changes could not be applied, please apply the following changes manually:")
	assert.Contains(t, summary[idx:], "Wire the item")
	assert.NotContains(t, summary, "See the final result: [App.txt]")
}

func TestSyncNewItem_FailedMergeOverwriteIsAConflict(t *testing.T) {
	e := newEnv(t)
	writeFile(t, filepath.Join(e.project, "App.txt"), "user content\n")

	strategy := &recordingStrategy{}
	e.ctrl.Options.Strategy = strategy

	out := e.ctrl.GenerateNewItem(context.Background(), e.gctx, templates.UserSelection{
		Items: []templates.SelectedItem{{TemplateID: "app", Name: "Item"}},
	})
	require.True(t, out.OK())

	out = e.ctrl.SyncNewItem(context.Background(), e.gctx)
	require.True(t, out.OK(), "sync failed: %v", out.Err())
	assert.Equal(t, []string{"App.txt"}, strategy.seen, "the unmerged file is resolved as a conflict")
}

func TestSyncNewItem_LedgerEntryWithoutFile(t *testing.T) {
	e := newEnv(t)
	e.generate(t)
	e.gctx.Ledger.Add("D.txt", genctx.MergeRecord{Intent: "Add D", Format: "txt", PostActionCode: "d"})

	out := e.ctrl.SyncNewItem(context.Background(), e.gctx)
	require.True(t, out.OK())

	summary := readFile(t, out.Reports[0])
	idx := strings.Index(summary, "### Changes in File 'D.txt':")
	require.GreaterOrEqual(t, idx, 0)
	assert.Contains(t, summary[idx:], "The changes could not be applied, please apply the following changes manually:")
}

func TestOutputNewItem_NeverWritesProject(t *testing.T) {
	e := newEnv(t)
	e.generate(t)
	before := snapshot(t, e.project)

	out := e.ctrl.OutputNewItem(context.Background(), e.gctx)
	require.True(t, out.OK(), "output failed: %v", out.Err())

	assert.Equal(t, before, snapshot(t, e.project))
	assert.Nil(t, out.Copy)

	require.Len(t, out.Reports, 1)
	assert.Equal(t, report.OutputFileName, filepath.Base(out.Reports[0]))
	steps := readFile(t, out.Reports[0])
	newIdx := strings.Index(steps, "## New files:")
	conflictIdx := strings.Index(steps, "## Conflicting files:")
	require.GreaterOrEqual(t, newIdx, 0)
	require.Greater(t, conflictIdx, newIdx)
	assert.Contains(t, steps[newIdx:conflictIdx], "A.txt")
	assert.Contains(t, steps[conflictIdx:], "C.txt")
}

func TestOutputNewItem_NeverRunsCommands(t *testing.T) {
	e := newEnv(t)
	e.ctrl.Registry.Runner = e.runner
	e.ctrl.Registry.Commands = []postaction.Command{{Name: "fmt", Run: []string{"gofmt", "-w", "."}}}
	e.generate(t)

	out := e.ctrl.OutputNewItem(context.Background(), e.gctx)
	require.True(t, out.OK())
	assert.Empty(t, e.runner.ran)
}

func TestSyncNewItem_FinishActionFailsOnSecondOfThree(t *testing.T) {
	e := newEnv(t)
	e.runner.failOn = "second"
	e.ctrl.Registry.Runner = e.runner
	e.ctrl.Registry.Commands = []postaction.Command{
		{Name: "one", Run: []string{"first"}},
		{Name: "two", Run: []string{"second"}},
		{Name: "three", Run: []string{"third"}},
	}
	e.generate(t)

	out := e.ctrl.SyncNewItem(context.Background(), e.gctx)

	require.False(t, out.OK())
	assert.Equal(t, PostActionFailure, out.Failure.Kind)
	assert.Equal(t, []string{"first", "second"}, e.runner.ran, "third action never runs")
	assert.Empty(t, e.opener.opened)
	assert.Nil(t, out.Reports, "no partial summary on failure")

	var paErr *postaction.Error
	require.True(t, errors.As(out.Err(), &paErr))
	assert.Equal(t, 1, paErr.Index)

	assert.Len(t, e.host.errors, 1, "failure is reported once")
	assert.Equal(t, 1, e.host.cancels)
}

func TestSyncNewItem_Cancelled(t *testing.T) {
	e := newEnv(t)
	e.ctrl.Options.Strategy = fixedStrategy(apply.Cancel)
	e.generate(t)
	before := snapshot(t, e.project)

	out := e.ctrl.SyncNewItem(context.Background(), e.gctx)

	require.False(t, out.OK())
	assert.Equal(t, Cancelled, out.Failure.Kind)
	assert.True(t, errors.Is(out.Err(), apply.ErrCancelled))
	assert.Equal(t, before, snapshot(t, e.project), "cancelling copies nothing")
	assert.Empty(t, e.host.errors, "cancellation is not shown as an error")
	assert.Equal(t, 1, e.host.cancels)
	assert.Empty(t, e.tracker.exceptions)
}

func TestSyncNewItem_SkipKeepsProjectFile(t *testing.T) {
	e := newEnv(t)
	e.ctrl.Options.Strategy = fixedStrategy(apply.Skip)
	e.generate(t)

	out := e.ctrl.SyncNewItem(context.Background(), e.gctx)
	require.True(t, out.OK())

	assert.Equal(t, "project version\n", readFile(t, filepath.Join(e.project, "C.txt")))
	assert.Equal(t, []string{"C.txt"}, out.Copy.Skipped)
	assert.Contains(t, readFile(t, out.Reports[0]), "## Skipped files:")
}

func TestSyncNewItem_StrategyPanic(t *testing.T) {
	e := newEnv(t)
	e.ctrl.Options.Strategy = panicStrategy{}
	e.generate(t)

	out := e.ctrl.SyncNewItem(context.Background(), e.gctx)

	require.False(t, out.OK())
	assert.Equal(t, InternalFailure, out.Failure.Kind)
	assert.Contains(t, out.Err().Error(), "panic: strategy exploded")
	assert.Nil(t, out.Reports)
	assert.Len(t, e.host.errors, 1)
	assert.Equal(t, 1, e.host.cancels)
	assert.Len(t, e.tracker.exceptions, 1)
}

func TestGenerateNewItem_EnginePanic(t *testing.T) {
	e := newEnv(t)
	e.ctrl.Engine = panicEngine{}

	out := e.ctrl.GenerateNewItem(context.Background(), e.gctx, templates.UserSelection{
		Items: []templates.SelectedItem{{TemplateID: "demo", Name: "Demo"}},
	})

	require.False(t, out.OK())
	assert.Equal(t, GenerationFailure, out.Failure.Kind)
	assert.Contains(t, out.Err().Error(), "engine exploded")
	assert.Len(t, e.host.errors, 1)
	assert.Equal(t, 1, e.host.cancels)
}

func TestSyncNewItem_ReportOutlivesCleanup(t *testing.T) {
	e := newEnv(t)
	e.ctrl.Options.ReportDir = t.TempDir()
	e.generate(t)
	e.gctx.TempRoot = filepath.Dir(e.gctx.OutputPath)

	out := e.ctrl.SyncNewItem(context.Background(), e.gctx)
	require.True(t, out.OK(), "sync failed: %v", out.Err())
	require.Len(t, out.Reports, 1)
	assert.Equal(t, filepath.Join(e.ctrl.Options.ReportDir, e.gctx.ID, report.SyncFileName), out.Reports[0])

	require.Empty(t, e.ctrl.Cleanup(e.gctx))
	assert.NoDirExists(t, e.gctx.OutputPath)
	assert.FileExists(t, out.Reports[0])
}

func TestSyncNewItem_MissingOutput(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.RemoveAll(e.gctx.OutputPath))

	out := e.ctrl.SyncNewItem(context.Background(), e.gctx)
	require.False(t, out.OK())
	assert.Equal(t, ReconcileFailure, out.Failure.Kind)
}

func TestCleanup(t *testing.T) {
	e := newEnv(t)
	e.generate(t)
	e.gctx.TempRoot = filepath.Dir(e.gctx.OutputPath)

	assert.Empty(t, e.ctrl.Cleanup(e.gctx))
	_, err := os.Stat(e.gctx.OutputPath)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, e.gctx.Ledger.Len())
}

func TestCleanup_RefusesOutsideTempRoot(t *testing.T) {
	e := newEnv(t)
	e.gctx.TempRoot = filepath.Join(t.TempDir(), "elsewhere")

	warnings := e.ctrl.Cleanup(e.gctx)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "can't be deleted")
	assert.Len(t, e.tracker.exceptions, 1)

	_, err := os.Stat(e.gctx.OutputPath)
	assert.NoError(t, err)
}

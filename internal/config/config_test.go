package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "templates", cfg.Templates.Path)
	assert.Equal(t, ConflictsOverwrite, cfg.Sync.Conflicts)
	assert.True(t, cfg.Report.ConflictDiffs)
	assert.False(t, cfg.Scratch.Keep)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ProjectFile(t *testing.T) {
	dir := t.TempDir()
	content := `project:
  type: webapi
  framework: chi
sync:
  conflicts: skip
finish:
  commands:
    - name: gofmt
      run: [gofmt, -w, .]
report:
  html: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

	cfg, err := Load(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "webapi", cfg.Project.Type)
	assert.Equal(t, "chi", cfg.Project.Framework)
	assert.Equal(t, ConflictsSkip, cfg.Sync.Conflicts)
	require.Len(t, cfg.Finish.Commands, 1)
	assert.Equal(t, "gofmt", cfg.Finish.Commands[0].Name)
	assert.Equal(t, []string{"gofmt", "-w", "."}, cfg.Finish.Commands[0].Run)
	assert.True(t, cfg.Report.HTML)
	assert.True(t, cfg.Report.ConflictDiffs, "unset keys keep defaults")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ROOST_SYNC_CONFLICTS", "prompt")

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, ConflictsPrompt, cfg.Sync.Conflicts)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(t.TempDir(), "", "sync.conflicts=diff", "scratch.keep=true")
	require.NoError(t, err)

	assert.Equal(t, ConflictsDiff, cfg.Sync.Conflicts)
	assert.True(t, cfg.Scratch.Keep)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "nope.yml"))
		require.Error(t, err)
	})

	t.Run("bad override", func(t *testing.T) {
		_, err := Load(t.TempDir(), "", "no-equals-sign")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key=value")
	})

	t.Run("invalid conflicts", func(t *testing.T) {
		_, err := Load(t.TempDir(), "", "sync.conflicts=merge")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid sync.conflicts")
	})
}

func TestValidate_EmptyCommand(t *testing.T) {
	cfg := Default()
	cfg.Finish.Commands = []CommandConfig{{Name: "broken"}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestScratchRoot(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join(os.TempDir(), "roost"), cfg.ScratchRoot())

	cfg.Scratch.Root = "/var/tmp/gen"
	assert.Equal(t, "/var/tmp/gen", cfg.ScratchRoot())
}

func TestReportDir(t *testing.T) {
	project := filepath.Join(t.TempDir(), "app")
	abs := filepath.Join(t.TempDir(), "reports")

	tests := []struct {
		name string
		dir  string
		want string
	}{
		{"relative to project", ".roost/reports", filepath.Join(project, ".roost", "reports")},
		{"absolute", abs, abs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Report.Dir = tt.dir
			assert.Equal(t, tt.want, cfg.ReportDir(project))
		})
	}

	t.Run("default lives outside the scratch root", func(t *testing.T) {
		cfg := Default()
		dir := cfg.ReportDir(project)
		assert.NotEmpty(t, dir)
		rel, err := filepath.Rel(cfg.ScratchRoot(), dir)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(rel, ".."), "%s must not be cleaned with scratch trees", dir)
	})
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	cfg := Default()
	cfg.Project.Type = "cli"

	require.NoError(t, Save(path, cfg, false))

	loaded, err := Load(filepath.Dir(path), "")
	require.NoError(t, err)
	assert.Equal(t, "cli", loaded.Project.Type)

	err = Save(path, cfg, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, Save(path, cfg, true))
}

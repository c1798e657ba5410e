package postaction

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/simonhull/roost/internal/fsutil"
	"github.com/simonhull/roost/internal/genctx"
	"github.com/simonhull/roost/internal/logger"
)

// MergeFile merges every pending fragment in the scratch tree into its target.
// Per-fragment merge failures are recorded as warnings and failed markers;
// only an unreadable scratch tree fails the action.
type MergeFile struct {
	Logger logger.Logger
}

func (m *MergeFile) Kind() Kind { return KindMergeFile }

func (m *MergeFile) Description() string { return "merge post-action fragments" }

func (m *MergeFile) Execute(ctx context.Context, gctx *genctx.Context) error {
	log := m.Logger
	if log == nil {
		log = logger.Default()
	}

	all, err := fsutil.Files(gctx.OutputPath, fsutil.WalkOptions{All: true})
	if err != nil {
		return fmt.Errorf("scan fragments: %w", err)
	}

	var fragments []string
	for _, rel := range all {
		if IsPostAction(rel) && !IsFailedPostAction(rel) {
			fragments = append(fragments, rel)
		}
	}
	sort.Strings(fragments)

	for _, rel := range fragments {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.mergeOne(gctx, rel, log)
	}
	return nil
}

func (m *MergeFile) mergeOne(gctx *genctx.Context, rel string, log logger.Logger) {
	target, ok := TargetName(rel)
	if !ok {
		m.fail(gctx, rel, "", fmt.Errorf("cannot resolve merge target"), log)
		return
	}

	fragmentPath := gctx.OutputFile(rel)
	raw, err := os.ReadFile(fragmentPath)
	if err != nil {
		m.fail(gctx, rel, target, err, log)
		return
	}

	fragment, parseErr := ParseFragment(string(raw))

	projectPath := gctx.ProjectFile(target)
	inProject := fsutil.Exists(projectPath)
	if inProject {
		gctx.Ledger.Add(target, record(target, fragment, string(raw)))
	}

	if parseErr != nil {
		m.fail(gctx, rel, target, parseErr, log)
		return
	}

	basePath := gctx.OutputFile(target)
	if !fsutil.Exists(basePath) {
		if !inProject {
			m.fail(gctx, rel, target, fmt.Errorf("no file %s to merge into", target), log)
			return
		}
		basePath = projectPath
	}

	base, err := os.ReadFile(basePath)
	if err != nil {
		m.fail(gctx, rel, target, err, log)
		return
	}

	merged, err := fragment.Apply(string(base))
	if err != nil {
		m.fail(gctx, rel, target, err, log)
		return
	}

	dest := gctx.OutputFile(target)
	if err := fsutil.EnsureDir(filepath.Dir(dest)); err != nil {
		m.fail(gctx, rel, target, err, log)
		return
	}
	if err := os.WriteFile(dest, []byte(merged), filePerm(basePath)); err != nil {
		m.fail(gctx, rel, target, err, log)
		return
	}
	if err := os.Remove(fragmentPath); err != nil {
		log.Warn("could not remove merged fragment", logger.F("fragment", rel), logger.Err(err))
	}

	log.Debug("merged fragment", logger.F("fragment", rel), logger.F("target", target))
}

// fail renames the fragment to its failed marker, records a warning and
// marks target as not merged so reconciliation keeps it out of Modified.
func (m *MergeFile) fail(gctx *genctx.Context, rel, target string, cause error, log logger.Logger) {
	if target != "" {
		gctx.MarkMergeFailed(target)
	}
	failed := FailedName(rel)
	if err := os.Rename(gctx.OutputFile(rel), gctx.OutputFile(failed)); err != nil {
		log.Warn("could not mark failed fragment", logger.F("fragment", rel), logger.Err(err))
	}
	gctx.Warn("merge of %s failed: %v", rel, cause)
	log.Warn("merge failed", logger.F("fragment", rel), logger.Err(cause))
}

func record(target string, fragment *Fragment, raw string) genctx.MergeRecord {
	name := path.Base(target)
	rec := genctx.MergeRecord{
		Intent:         fmt.Sprintf("Merge changes into %s", name),
		Format:         formatOf(name),
		PostActionCode: raw,
	}
	if fragment != nil {
		rec.PostActionCode = fragment.Code
		if fragment.Intent != "" {
			rec.Intent = fragment.Intent
		}
	}
	return rec
}

func formatOf(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	return ext[1:]
}

func filePerm(p string) os.FileMode {
	if info, err := os.Stat(p); err == nil {
		return info.Mode().Perm()
	}
	return 0644
}

// Package reconcile classifies the files of a scratch output tree against
// the target project as New, Modified or Conflicting.
package reconcile

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/simonhull/roost/internal/fsutil"
	"github.com/simonhull/roost/internal/genctx"
	"github.com/simonhull/roost/internal/postaction"
)

// ErrNoOutput is returned when the scratch output tree is missing
var ErrNoOutput = errors.New("generated output not found")

// Classification is the reconciliation verdict for one generated file
type Classification int

const (
	New Classification = iota
	Modified
	Conflicting
)

func (c Classification) String() string {
	switch c {
	case New:
		return "new"
	case Modified:
		return "modified"
	case Conflicting:
		return "conflicting"
	default:
		return "unknown"
	}
}

// FileInfo locates one generated file in both trees
type FileInfo struct {
	Name        string // project-relative, forward slashes
	OutputPath  string
	ProjectPath string
}

// Result holds the three disjoint classification sets, each sorted by Name
type Result struct {
	New         []FileInfo
	Modified    []FileInfo
	Conflicting []FileInfo
}

// Len returns the number of classified files
func (r *Result) Len() int {
	return len(r.New) + len(r.Modified) + len(r.Conflicting)
}

// Find returns the classification of name, if it was generated
func (r *Result) Find(name string) (FileInfo, Classification, bool) {
	for c, set := range [][]FileInfo{r.New, r.Modified, r.Conflicting} {
		for _, f := range set {
			if f.Name == name {
				return f, Classification(c), true
			}
		}
	}
	return FileInfo{}, 0, false
}

// Classify decides a single file: no project counterpart is New, a counterpart
// with a ledger entry is Modified, any other counterpart is Conflicting.
func Classify(existsInProject, inLedger bool) Classification {
	switch {
	case !existsInProject:
		return New
	case inLedger:
		return Modified
	default:
		return Conflicting
	}
}

// Reconcile walks every regular file under gctx.OutputPath, hidden files
// included, skipping post-action markers. A file whose merge failed this cycle
// counts as not merged, whatever the ledger says. It has no side effects.
func Reconcile(gctx *genctx.Context) (*Result, error) {
	info, err := os.Stat(gctx.OutputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoOutput, gctx.OutputPath)
		}
		return nil, fmt.Errorf("read output %s: %w", gctx.OutputPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNoOutput, gctx.OutputPath)
	}

	files, err := fsutil.Files(gctx.OutputPath, fsutil.WalkOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("enumerate generated files: %w", err)
	}
	sort.Strings(files)

	result := &Result{}
	for _, rel := range files {
		if postaction.IsMarker(rel) {
			continue
		}

		fi := FileInfo{
			Name:        rel,
			OutputPath:  gctx.OutputFile(rel),
			ProjectPath: gctx.ProjectFile(rel),
		}

		merged := gctx.Ledger.Has(rel) && !gctx.MergeFailed(rel)
		switch Classify(fsutil.Exists(fi.ProjectPath), merged) {
		case New:
			result.New = append(result.New, fi)
		case Modified:
			result.Modified = append(result.Modified, fi)
		case Conflicting:
			result.Conflicting = append(result.Conflicting, fi)
		}
	}

	return result, nil
}

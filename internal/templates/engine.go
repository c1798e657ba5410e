package templates

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/simonhull/roost/internal/fsutil"
	"github.com/simonhull/roost/internal/genctx"
	"github.com/simonhull/roost/internal/postaction"
	"golang.org/x/sync/errgroup"
)

// TemplateExt marks content files whose body is a text/template
const TemplateExt = ".tmpl"

// ResultStatus is the outcome of generating one item
type ResultStatus int

const (
	StatusSuccess ResultStatus = iota
	StatusFailure
)

func (s ResultStatus) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "failure"
}

// Result is the per-item generation handle
type Result struct {
	Key     string
	Status  ResultStatus
	Message string
	Files   []string // scratch-relative, slash separated
}

// Engine renders one item into a cycle's scratch tree
type Engine interface {
	Generate(ctx context.Context, gctx *genctx.Context, info GenInfo) (Result, error)
}

// Data is what content templates see
type Data struct {
	Name        string
	ProjectName string
	Module      string
	ProjectType string
	Framework   string
	Parameters  map[string]string
}

// DirEngine renders a template's content/ directory. Every path segment is a
// template; bodies are rendered only for files ending in .tmpl (the suffix is
// dropped) and copied verbatim otherwise.
type DirEngine struct {
	Renderer    *Renderer
	Module      string
	ProjectType string
	Framework   string
}

// NewDirEngine returns an engine with a fresh renderer
func NewDirEngine(module, projectType, framework string) *DirEngine {
	return &DirEngine{
		Renderer:    NewRenderer(),
		Module:      module,
		ProjectType: projectType,
		Framework:   framework,
	}
}

// Generate implements Engine
func (e *DirEngine) Generate(ctx context.Context, gctx *genctx.Context, info GenInfo) (Result, error) {
	res := Result{Key: info.Key(), Status: StatusFailure}

	data := Data{
		Name:        info.Name,
		ProjectName: gctx.ProjectName,
		Module:      e.Module,
		ProjectType: e.ProjectType,
		Framework:   e.Framework,
		Parameters:  info.Parameters,
	}
	if data.Parameters == nil {
		data.Parameters = map[string]string{}
	}

	root := info.Template.ContentPath()
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		dest, err := e.renderPath(info, rel, data)
		if err != nil {
			return err
		}

		var body []byte
		if strings.HasSuffix(rel, TemplateExt) {
			body, err = e.Renderer.RenderFile(p, data)
		} else {
			body, err = os.ReadFile(p)
		}
		if err != nil {
			return err
		}

		target := gctx.OutputFile(dest)
		if err := fsutil.EnsureDir(filepath.Dir(target)); err != nil {
			return err
		}
		if err := os.WriteFile(target, body, 0644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}

		res.Files = append(res.Files, dest)
		return nil
	})
	if err != nil {
		err = fmt.Errorf("generate %s: %w", res.Key, err)
		res.Message = err.Error()
		return res, err
	}

	res.Status = StatusSuccess
	gctx.AddProjectItem(res.Key)
	return res, nil
}

// renderPath renders each segment of a content path, strips the template
// suffix and tags merge fragments with the instance name.
func (e *DirEngine) renderPath(info GenInfo, rel string, data Data) (string, error) {
	segments := strings.Split(strings.TrimSuffix(rel, TemplateExt), "/")
	for i, seg := range segments {
		if !strings.Contains(seg, "{{") {
			continue
		}
		out, err := e.Renderer.RenderString(info.Template.Identity+":"+seg, seg, data)
		if err != nil {
			return "", err
		}
		segments[i] = string(out)
	}

	dest := path.Clean(strings.Join(segments, "/"))
	if dest == "." || strings.HasPrefix(dest, "../") || path.IsAbs(dest) {
		return "", fmt.Errorf("content path %s renders outside the output tree", rel)
	}
	return postaction.FragmentName(dest, info.Name), nil
}

// GenerateAll runs every item concurrently and waits for all of them. The
// returned map holds one result per item key, failures included; the error
// is the first failure. A panicking engine fails its item instead of the
// process.
func GenerateAll(ctx context.Context, engine Engine, gctx *genctx.Context, items []GenInfo) (map[string]Result, error) {
	results := make(map[string]Result, len(items))
	var mu sync.Mutex

	g, runCtx := errgroup.WithContext(ctx)
	for _, info := range items {
		info := info // per-iteration copy; go directive is below 1.22
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("generate %s: panic: %v", info.Key(), r)
					mu.Lock()
					results[info.Key()] = Result{Key: info.Key(), Status: StatusFailure, Message: err.Error()}
					mu.Unlock()
				}
			}()

			res, err := engine.Generate(runCtx, gctx, info)
			if res.Key == "" {
				res.Key = info.Key()
			}
			if err != nil && res.Status == StatusSuccess {
				res.Status = StatusFailure
				res.Message = err.Error()
			}

			mu.Lock()
			results[res.Key] = res
			mu.Unlock()
			return err
		})
	}

	err := g.Wait()
	return results, err
}

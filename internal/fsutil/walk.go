// Package fsutil holds the filesystem primitives the pipeline relies on:
// tree walking, directory creation, overwrite-safe copies and guarded deletes.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// DefaultIgnoreDirs are common directories to skip during traversal
var DefaultIgnoreDirs = []string{
	"node_modules", "vendor", ".git", ".svn", ".hg",
	".idea", ".vscode", ".vs",
}

// WalkOptions configures directory traversal behavior
type WalkOptions struct {
	IgnoreDirs     []string // Directories to skip (nil: DefaultIgnoreDirs unless All)
	IgnorePatterns []string // File name patterns to skip (e.g., "*.tmp")
	IncludeHidden  bool     // Include hidden files/dirs
	All            bool     // Visit everything: no default ignores, hidden included
}

// Walk traverses a directory tree and calls visitor for every regular file.
// rel is the path relative to root, always slash separated.
func Walk(root string, opts WalkOptions, visitor func(path, rel string) error) error {
	ignoreDirs := opts.IgnoreDirs
	if ignoreDirs == nil && !opts.All {
		ignoreDirs = DefaultIgnoreDirs
	}
	includeHidden := opts.IncludeHidden || opts.All

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		name := d.Name()
		if !includeHidden && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			for _, ignore := range ignoreDirs {
				if name == ignore {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		for _, pattern := range opts.IgnorePatterns {
			if matched, _ := filepath.Match(pattern, name); matched {
				return nil
			}
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return visitor(path, filepath.ToSlash(rel))
	})
}

// Files returns every regular file under root (see Walk) as slash-separated
// relative paths, in lexical order.
func Files(root string, opts WalkOptions) ([]string, error) {
	var files []string
	err := Walk(root, opts, func(_, rel string) error {
		files = append(files, rel)
		return nil
	})
	return files, err
}

// Package models resolves model names to local weight files.
package models

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Model is one resolvable model.
type Model struct {
	Name string
	Path string
	Size int64
}

// ProgressFunc receives fetch progress. total is 0 when unknown.
type ProgressFunc func(status string, completed, total int64)

// Resolver maps model names to weight files.
type Resolver interface {
	// Resolve returns the model for name. A miss is IsNotFound.
	Resolve(name string) (Model, error)
	// Fetch makes name available locally, reporting progress along the way.
	Fetch(ctx context.Context, name string, onProgress ProgressFunc) (Model, error)
	// List enumerates every resolvable model.
	List() ([]Model, error)
}

type notFoundError struct{ name string }

func (e notFoundError) Error() string { return "model not found: " + e.name }

// ErrNotFound constructs a resolver miss.
func ErrNotFound(name string) error { return notFoundError{name: name} }

// IsNotFound reports whether err is a resolver miss.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

// LocalDir resolves names against *.gguf files in a single directory. A name
// matches its filename with or without the extension.
type LocalDir struct {
	dir string
}

// NewLocalDir builds a resolver over dir. A leading '~' expands to the user's
// home directory.
func NewLocalDir(dir string) (*LocalDir, error) {
	expanded, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	return &LocalDir{dir: abs}, nil
}

// Dir returns the resolved scan directory.
func (r *LocalDir) Dir() string { return r.dir }

// List scans the directory for weight files, sorted by name.
func (r *LocalDir) List() ([]Model, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		m := Model{Name: name, Path: filepath.Join(r.dir, name)}
		if info, err := e.Info(); err == nil {
			m.Size = info.Size()
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Resolve matches name against the filename, with or without ".gguf".
func (r *LocalDir) Resolve(name string) (Model, error) {
	all, err := r.List()
	if err != nil {
		return Model{}, err
	}
	for _, m := range all {
		if m.Name == name || strings.TrimSuffix(m.Name, ".gguf") == name {
			return m, nil
		}
	}
	return Model{}, ErrNotFound(name)
}

// Fetch verifies the model is present; a local directory cannot download
// anything, so a miss stays a miss. Present models report one completed
// progress tick.
func (r *LocalDir) Fetch(ctx context.Context, name string, onProgress ProgressFunc) (Model, error) {
	m, err := r.Resolve(name)
	if err != nil {
		return Model{}, err
	}
	if onProgress != nil {
		onProgress("verifying", m.Size, m.Size)
	}
	return m, nil
}

func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

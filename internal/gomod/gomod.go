// Package gomod locates the Go module enclosing a directory and maps
// directories to import paths and back.
package gomod

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/mod/modfile"
)

// ErrNoModule is returned when no go.mod is found above a directory.
var ErrNoModule = errors.New("go.mod not found")

// Module is a Go module on disk.
type Module struct {
	// Path is the module path declared in go.mod.
	Path string
	// Dir is the absolute directory containing go.mod.
	Dir string
}

var cache sync.Map // absolute dir -> Module

// Find returns the module enclosing dir by walking up to the nearest go.mod.
func Find(dir string) (Module, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Module{}, err
	}
	if m, ok := cache.Load(abs); ok {
		return m.(Module), nil
	}

	for d := abs; ; {
		goMod := filepath.Join(d, "go.mod")
		if _, err := os.Stat(goMod); err == nil {
			modulePath, err := ReadModulePath(goMod)
			if err != nil {
				return Module{}, err
			}
			m := Module{Path: modulePath, Dir: d}
			cache.Store(abs, m)
			return m, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return Module{}, fmt.Errorf("%w for %s", ErrNoModule, dir)
}

// ReadModulePath reads the module path declared in a go.mod file.
func ReadModulePath(goModPath string) (string, error) {
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return "", err
	}
	modulePath := modfile.ModulePath(data)
	if modulePath == "" {
		return "", fmt.Errorf("module path not found in %s", goModPath)
	}
	return modulePath, nil
}

// ImportPath returns the import path of the package in dir.
func (m Module) ImportPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(m.Dir, abs)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return m.Path, nil
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside module %s", dir, m.Path)
	}
	return path.Join(m.Path, filepath.ToSlash(rel)), nil
}

// PackageDir returns the directory of the package with the given import path, or
// false if the path does not belong to the module.
func (m Module) PackageDir(importPath string) (string, bool) {
	if importPath == m.Path {
		return m.Dir, true
	}
	rel, ok := strings.CutPrefix(importPath, m.Path+"/")
	if !ok {
		return "", false
	}
	return filepath.Join(m.Dir, filepath.FromSlash(rel)), true
}

// GuessName guesses the package name of an import path from the usual
// conventions: the last element, without a major version suffix, a "go-"
// prefix or a ".vN" suffix.
func GuessName(importPath string) string {
	elems := strings.Split(importPath, "/")
	name := elems[len(elems)-1]
	if len(elems) > 1 && isMajorVersion(name) {
		name = elems[len(elems)-2]
	}
	if i := strings.LastIndex(name, ".v"); i > 0 && isMajorVersion(name[i+1:]) {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "go-")
	name = strings.TrimSuffix(name, "-go")
	name = strings.TrimSuffix(name, ".go")
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return -1
		}
		return r
	}, name)
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

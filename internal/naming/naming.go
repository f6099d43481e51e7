// Package naming resolves the identity of a generated builder: its type
// name, the package it belongs to and where that package lives on disk.
package naming

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"shireesh.com/buildergen/internal/diag"
	"shireesh.com/buildergen/internal/gomod"
	"shireesh.com/buildergen/internal/target"
)

// DefaultSuffix is appended to the target's simple name when the request
// does not name the builder.
const DefaultSuffix = "_Builder"

var (
	// ErrOutsideModule is returned for a package override that does not
	// belong to the target's module.
	ErrOutsideModule = errors.New("package is outside the target's module")
	// ErrVisibility is returned when a builder cannot see its target or its
	// explicit name contradicts isPublic.
	ErrVisibility = errors.New("visibility conflict")
)

// Options are the tool-wide naming settings.
type Options struct {
	// Suffix replaces DefaultSuffix when non-empty.
	Suffix string
}

// Identity is where and under which name a builder is generated.
type Identity struct {
	Name        string
	Public      bool
	PackagePath string
	PackageName string
	Dir         string
}

// Resolve computes the identity of the builder for t. Options left unset in
// the request fall back to defaults: the name becomes the target's simple
// name plus the suffix and the package is the target's own.
func Resolve(t *target.Target, opts Options) (Identity, error) {
	id := Identity{Public: t.Request.IsPublic}

	name, err := className(t, opts)
	if err != nil {
		return Identity{}, diag.Wrap(t.Pos, err)
	}
	id.Name = name

	if err := resolvePackage(t, &id); err != nil {
		return Identity{}, diag.Wrap(t.Pos, err)
	}

	if id.PackagePath != t.Package.ImportPath && !t.Callable.Exported {
		return Identity{}, diag.Wrap(t.Pos, fmt.Errorf("%w: %s is unexported and cannot be built from package %s",
			ErrVisibility, calleeName(t), id.PackagePath))
	}
	return id, nil
}

func className(t *target.Target, opts Options) (string, error) {
	if t.Request.ClassName != nil {
		name := *t.Request.ClassName
		if !token.IsIdentifier(name) {
			return "", fmt.Errorf("className %q is not a valid Go identifier", name)
		}
		switch exported := ast.IsExported(name); {
		case exported && !t.Request.IsPublic:
			return "", fmt.Errorf("%w: className %q is exported, remove isPublic=false", ErrVisibility, name)
		case !exported && t.Request.IsPublic:
			return "", fmt.Errorf("%w: className %q is unexported, add isPublic=false", ErrVisibility, name)
		}
		return name, nil
	}

	suffix := opts.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	name := Capitalize(t.SimpleName()) + suffix
	if !t.Request.IsPublic {
		name = Uncapitalize(name)
	}
	if !token.IsIdentifier(name) {
		return "", fmt.Errorf("derived builder name %q is not a valid Go identifier", name)
	}
	return name, nil
}

func resolvePackage(t *target.Target, id *Identity) error {
	pkg := t.Package
	if t.Request.PackageName == nil {
		id.PackagePath, id.PackageName, id.Dir = pkg.ImportPath, pkg.Name, pkg.Dir
		return nil
	}

	value := *t.Request.PackageName
	switch {
	case value == "." || strings.HasPrefix(value, "./") || strings.HasPrefix(value, "../"):
		dir := filepath.Join(pkg.Dir, filepath.FromSlash(value))
		importPath, err := pkg.Module.ImportPath(dir)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrOutsideModule, value)
		}
		id.PackagePath, id.Dir = importPath, dir
	default:
		dir, ok := pkg.Module.PackageDir(value)
		if !ok {
			return fmt.Errorf("%w: %s is not in module %s", ErrOutsideModule, value, pkg.Module.Path)
		}
		id.PackagePath, id.Dir = value, dir
	}

	if id.PackagePath == pkg.ImportPath {
		id.PackageName = pkg.Name
		return nil
	}
	name, err := packageClause(id.Dir)
	if err != nil {
		return err
	}
	if name == "" {
		name = gomod.GuessName(id.PackagePath)
	}
	if !token.IsIdentifier(name) {
		return fmt.Errorf("cannot derive a package name from %s", id.PackagePath)
	}
	id.PackageName = name
	return nil
}

// packageClause returns the package name declared by the Go files already
// present in dir, or "" if there are none.
func packageClause(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	fset := token.NewFileSet()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.PackageClauseOnly)
		if err != nil {
			return "", err
		}
		return f.Name.Name, nil
	}
	return "", nil
}

func calleeName(t *target.Target) string {
	if t.Callable.Name != "" {
		return t.Callable.Name
	}
	return t.Callable.TypeName
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Uncapitalize lower-cases the first rune of s.
func Uncapitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

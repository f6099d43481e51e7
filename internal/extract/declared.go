package extract

import (
	"errors"
	"go/ast"
	"go/build"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
)

// Declarations returns the package-level identifiers declared by the
// handwritten files in dir. A directory that does not exist yet declares
// nothing.
func Declarations(dir string) (map[string]token.Position, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	names := map[string]token.Position{}
	add := func(id *ast.Ident) {
		if id.Name == "_" || id.Name == "init" {
			return
		}
		if _, ok := names[id.Name]; !ok {
			names[id.Name] = fset.Position(id.Pos())
		}
	}
	for _, e := range entries {
		if e.IsDir() || !isValidGoFile(e.Name()) {
			continue
		}
		if ok, err := build.Default.MatchFile(dir, e.Name()); err != nil || !ok {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, e.Name()), nil, parser.SkipObjectResolution)
		if err != nil {
			return nil, err
		}
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Recv == nil {
					add(d.Name)
				}
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					switch sp := spec.(type) {
					case *ast.TypeSpec:
						add(sp.Name)
					case *ast.ValueSpec:
						for _, n := range sp.Names {
							add(n)
						}
					}
				}
			}
		}
	}
	return names, nil
}

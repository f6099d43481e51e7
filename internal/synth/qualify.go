package synth

import (
	"fmt"
	"go/ast"
	"strings"

	"shireesh.com/buildergen/internal/target"
)

var predeclared = map[string]bool{
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true,
	"float32": true, "float64": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"true": true, "false": true, "iota": true, "nil": true,
}

// qualifier prints type expressions of a target as they must be written
// in the generated file: identifiers of the target package get qualified
// when the builder lives elsewhere, selectors are resolved through the
// declaring file's imports and re-aliased for the generated file.
type qualifier struct {
	t          *target.Target
	imports    *importSet
	typeParams map[string]bool
	// used collects the aliases referenced, so generated local names can
	// avoid shadowing them.
	used map[string]bool
	err  error
}

func newQualifier(t *target.Target, imports *importSet) *qualifier {
	q := &qualifier{
		t:          t,
		imports:    imports,
		typeParams: map[string]bool{},
		used:       map[string]bool{},
	}
	for _, tp := range t.Callable.TypeParams {
		q.typeParams[tp.Name] = true
	}
	return q
}

// local returns the reference to a package level identifier of the target
// package.
func (q *qualifier) local(name string) string {
	alias := q.imports.add(q.t.Package.ImportPath, q.t.Package.Name)
	if alias == "" {
		return name
	}
	if !ast.IsExported(name) {
		q.fail(fmt.Errorf("%s.%s is unexported and cannot be referenced from package %s",
			q.t.Package.Name, name, q.imports.self))
	}
	q.used[alias] = true
	return alias + "." + name
}

func (q *qualifier) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

func (q *qualifier) expr(e ast.Expr) string {
	var sb strings.Builder
	q.write(&sb, e)
	return sb.String()
}

func (q *qualifier) write(sb *strings.Builder, e ast.Expr) {
	switch e := e.(type) {
	case *ast.Ident:
		if q.typeParams[e.Name] || predeclared[e.Name] {
			sb.WriteString(e.Name)
			return
		}
		sb.WriteString(q.local(e.Name))

	case *ast.SelectorExpr:
		pkg, ok := e.X.(*ast.Ident)
		if !ok {
			q.fail(fmt.Errorf("unsupported qualified type %T", e.X))
			return
		}
		importPath, ok := q.t.Imports[pkg.Name]
		if !ok {
			q.fail(fmt.Errorf("cannot resolve package %q", pkg.Name))
			return
		}
		if alias := q.imports.add(importPath, pkg.Name); alias != "" {
			q.used[alias] = true
			sb.WriteString(alias)
			sb.WriteByte('.')
		}
		sb.WriteString(e.Sel.Name)

	case *ast.StarExpr:
		sb.WriteByte('*')
		q.write(sb, e.X)

	case *ast.ParenExpr:
		sb.WriteByte('(')
		q.write(sb, e.X)
		sb.WriteByte(')')

	case *ast.Ellipsis:
		sb.WriteString("...")
		q.write(sb, e.Elt)

	case *ast.BasicLit:
		sb.WriteString(e.Value)

	case *ast.UnaryExpr:
		sb.WriteString(e.Op.String())
		q.write(sb, e.X)

	case *ast.BinaryExpr:
		q.write(sb, e.X)
		sb.WriteString(" " + e.Op.String() + " ")
		q.write(sb, e.Y)

	case *ast.ArrayType:
		sb.WriteByte('[')
		if e.Len != nil {
			q.write(sb, e.Len)
		}
		sb.WriteByte(']')
		q.write(sb, e.Elt)

	case *ast.MapType:
		sb.WriteString("map[")
		q.write(sb, e.Key)
		sb.WriteByte(']')
		q.write(sb, e.Value)

	case *ast.ChanType:
		switch e.Dir {
		case ast.SEND:
			sb.WriteString("chan<- ")
		case ast.RECV:
			sb.WriteString("<-chan ")
		default:
			sb.WriteString("chan ")
		}
		q.write(sb, e.Value)

	case *ast.FuncType:
		sb.WriteString("func")
		q.signature(sb, e)

	case *ast.InterfaceType:
		sb.WriteString("interface{")
		for i, m := range e.Methods.List {
			if i > 0 {
				sb.WriteString("; ")
			}
			if len(m.Names) > 0 {
				sb.WriteString(m.Names[0].Name)
				if ft, ok := m.Type.(*ast.FuncType); ok {
					q.signature(sb, ft)
					continue
				}
			}
			q.write(sb, m.Type)
		}
		sb.WriteByte('}')

	case *ast.StructType:
		sb.WriteString("struct{")
		for i, f := range e.Fields.List {
			if i > 0 {
				sb.WriteString("; ")
			}
			q.fieldNames(sb, f)
			q.write(sb, f.Type)
			if f.Tag != nil {
				sb.WriteString(" " + f.Tag.Value)
			}
		}
		sb.WriteByte('}')

	case *ast.IndexExpr:
		q.write(sb, e.X)
		sb.WriteByte('[')
		q.write(sb, e.Index)
		sb.WriteByte(']')

	case *ast.IndexListExpr:
		q.write(sb, e.X)
		sb.WriteByte('[')
		for i, idx := range e.Indices {
			if i > 0 {
				sb.WriteString(", ")
			}
			q.write(sb, idx)
		}
		sb.WriteByte(']')

	default:
		q.fail(fmt.Errorf("unsupported type expression %T", e))
	}
}

func (q *qualifier) signature(sb *strings.Builder, ft *ast.FuncType) {
	q.fieldList(sb, ft.Params)
	if ft.Results == nil || len(ft.Results.List) == 0 {
		return
	}
	sb.WriteByte(' ')
	if len(ft.Results.List) == 1 && len(ft.Results.List[0].Names) == 0 {
		q.write(sb, ft.Results.List[0].Type)
		return
	}
	q.fieldList(sb, ft.Results)
}

func (q *qualifier) fieldList(sb *strings.Builder, fl *ast.FieldList) {
	sb.WriteByte('(')
	if fl != nil {
		for i, f := range fl.List {
			if i > 0 {
				sb.WriteString(", ")
			}
			q.fieldNames(sb, f)
			q.write(sb, f.Type)
		}
	}
	sb.WriteByte(')')
}

func (q *qualifier) fieldNames(sb *strings.Builder, f *ast.Field) {
	for i, n := range f.Names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(n.Name)
	}
	if len(f.Names) > 0 {
		sb.WriteByte(' ')
	}
}

// isBool reports whether e is the predeclared bool type.
func isBool(e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && id.Name == "bool"
}

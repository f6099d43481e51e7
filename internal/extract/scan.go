package extract

import (
	"context"
	"fmt"
	"go/ast"
	"go/build"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"

	slogcontext "github.com/veqryn/slog-context"

	"shireesh.com/buildergen/internal/diag"
	"shireesh.com/buildergen/internal/gomod"
	"shireesh.com/buildergen/internal/marker"
	"shireesh.com/buildergen/internal/target"
)

// structTag is the struct tag key consulted for literal targets.
//
//	Name string `builder:"required"`
//	cache map[string]int `builder:"-"`
const structTag = "builder"

type typeDecl struct {
	spec *ast.TypeSpec
	file *ast.File
	doc  []*ast.CommentGroup
}

type funcDecl struct {
	decl *ast.FuncDecl
	file *ast.File
}

// scanner holds the declarations of one package.
type scanner struct {
	pkg     *target.Package
	imports map[*ast.File]target.Imports
	types   map[string]*typeDecl
	order   []string
	funcs   []*funcDecl
	diags   diag.List
}

// ScanPackage parses the Go files in dir and returns the package and the
// targets marked in it. Usage errors are returned joined in err alongside
// the targets that were valid.
func ScanPackage(ctx context.Context, dir string) (*target.Package, []*target.Target, error) {
	module, err := gomod.Find(dir)
	if err != nil {
		return nil, nil, err
	}
	importPath, err := module.ImportPath(dir)
	if err != nil {
		return nil, nil, err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, err
	}

	s := &scanner{
		pkg: &target.Package{
			ImportPath: importPath,
			Dir:        absDir,
			Module:     module,
			Fset:       token.NewFileSet(),
		},
		imports: map[*ast.File]target.Imports{},
		types:   map[string]*typeDecl{},
	}

	files, err := s.parse(absDir)
	if err != nil {
		return nil, nil, err
	}
	for _, f := range files {
		s.collect(f)
	}
	targets := s.targets()

	slogcontext.FromCtx(ctx).DebugContext(ctx, "scanned package",
		"pkg", s.pkg.ImportPath, "files", len(files), "targets", len(targets))
	return s.pkg, targets, s.diags.Err()
}

// parse reads the non-test, non-generated files of dir that match the
// current build context, sorted by name.
func (s *scanner) parse(dir string) ([]*ast.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []*ast.File
	for _, e := range entries {
		if e.IsDir() || !isValidGoFile(e.Name()) {
			continue
		}
		if ok, err := build.Default.MatchFile(dir, e.Name()); err != nil || !ok {
			continue
		}
		fullPath := filepath.Join(dir, e.Name())
		file, err := parser.ParseFile(s.pkg.Fset, fullPath, nil, parser.ParseComments)
		if err != nil {
			return nil, err
		}
		if s.pkg.Name == "" {
			s.pkg.Name = file.Name.Name
		} else if file.Name.Name != s.pkg.Name {
			s.diags.Add(diag.Errorf(s.position(file.Name), "found packages %s and %s in %s", s.pkg.Name, file.Name.Name, dir))
			continue
		}
		files = append(files, file)
	}
	if s.pkg.Name == "" {
		s.pkg.Name = filepath.Base(dir)
	}
	return files, nil
}

func (s *scanner) position(n ast.Node) token.Position {
	return s.pkg.Fset.Position(n.Pos())
}

// collect records the top-level declarations of f and reports directives in
// places that cannot carry one.
func (s *scanner) collect(f *ast.File) {
	s.imports[f] = fileImports(f)

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				s.rejectGenDecl(d, "not a type, constructor or function")
				continue
			}
			// A directive above a type group would mark every type in it.
			groupDoc := d.Doc
			if len(d.Specs) > 1 {
				if marker.Has(d.Doc) {
					s.diags.Add(diag.Errorf(s.position(d), "invalid %s placement: grouped type declaration; put it on the type itself", marker.Directive))
				}
				groupDoc = nil
			}
			for _, spec := range d.Specs {
				ts := spec.(*ast.TypeSpec)
				if _, dup := s.types[ts.Name.Name]; dup {
					continue
				}
				s.types[ts.Name.Name] = &typeDecl{spec: ts, file: f, doc: []*ast.CommentGroup{groupDoc, ts.Doc}}
				s.order = append(s.order, ts.Name.Name)
			}
		case *ast.FuncDecl:
			if d.Recv != nil {
				if marker.Has(d.Doc) {
					s.diags.Add(diag.Errorf(s.position(d), "method %s cannot be a builder target; use a top-level function", d.Name.Name))
				}
				continue
			}
			s.funcs = append(s.funcs, &funcDecl{decl: d, file: f})
			if d.Body != nil {
				s.rejectLocal(d.Body)
			}
		}
	}
}

func (s *scanner) rejectGenDecl(d *ast.GenDecl, reason string) {
	if marker.Has(d.Doc) {
		s.diags.Add(diag.Errorf(s.position(d), "invalid %s placement: %s", marker.Directive, reason))
		return
	}
	for _, spec := range d.Specs {
		var doc *ast.CommentGroup
		switch sp := spec.(type) {
		case *ast.ValueSpec:
			doc = sp.Doc
		case *ast.ImportSpec:
			doc = sp.Doc
		case *ast.TypeSpec:
			doc = sp.Doc
		}
		if marker.Has(doc) {
			s.diags.Add(diag.Errorf(s.position(spec), "invalid %s placement: %s", marker.Directive, reason))
		}
	}
}

// rejectLocal reports directives on declarations inside function bodies.
func (s *scanner) rejectLocal(body *ast.BlockStmt) {
	ast.Inspect(body, func(n ast.Node) bool {
		if ds, ok := n.(*ast.DeclStmt); ok {
			if gd, ok := ds.Decl.(*ast.GenDecl); ok {
				s.rejectGenDecl(gd, "not a top-level declaration")
			}
		}
		return true
	})
}

func (s *scanner) targets() []*target.Target {
	var targets []*target.Target
	for _, fd := range s.funcs {
		reqs, err := marker.FromDoc(fd.decl.Doc)
		if err != nil {
			s.diags.Add(diag.Wrap(s.position(fd.decl), err))
			continue
		}
		if len(reqs) == 0 {
			continue
		}
		if t := s.funcTarget(fd, marker.Merge(reqs)); t != nil {
			targets = append(targets, t)
		}
	}
	for _, name := range s.order {
		td := s.types[name]
		reqs, err := marker.FromDoc(td.doc...)
		if err != nil {
			s.diags.Add(diag.Wrap(s.position(td.spec), err))
			continue
		}
		if len(reqs) == 0 {
			continue
		}
		if t := s.typeTarget(td, marker.Merge(reqs)); t != nil {
			targets = append(targets, t)
		}
	}
	sort.SliceStable(targets, func(i, j int) bool {
		a, b := targets[i].Pos, targets[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Offset < b.Offset
	})
	return targets
}

func (s *scanner) funcTarget(fd *funcDecl, req marker.Request) *target.Target {
	callable := s.callable(fd)
	origin := target.KindFunction
	if callable.Kind == target.CallConstructor {
		origin = target.KindConstructor
	}
	t := &target.Target{
		Origin:   origin,
		Package:  s.pkg,
		Imports:  s.imports[fd.file],
		Callable: callable,
		Request:  req,
		Pos:      s.position(fd.decl),
	}
	if !s.applyRequired(t) {
		return nil
	}
	return t
}

// typeTarget normalizes a marked type into its longest constructor, or its
// struct literal when it has no constructor.
func (s *scanner) typeTarget(td *typeDecl, req marker.Request) *target.Target {
	name := td.spec.Name.Name
	crossPackage := !samePackage(req, s.pkg)

	var best *funcDecl
	bestParams := -1
	for _, fd := range s.funcs {
		if s.constructs(fd.decl) != name || marker.Has(fd.decl.Doc) {
			continue
		}
		if crossPackage && !fd.decl.Name.IsExported() {
			continue
		}
		// Ties keep the first candidate in declaration order.
		if n := countParams(fd.decl.Type.Params); n > bestParams {
			best, bestParams = fd, n
		}
	}

	t := &target.Target{
		Origin:  target.KindType,
		Package: s.pkg,
		Imports: s.imports[td.file],
		Request: req,
		Pos:     s.position(td.spec),
	}
	switch {
	case best != nil:
		t.Imports = s.imports[best.file]
		t.Callable = s.callable(best)
	default:
		st, ok := td.spec.Type.(*ast.StructType)
		if !ok || td.spec.Assign.IsValid() {
			s.diags.Add(&diag.Diagnostic{Pos: t.Pos, Err: fmt.Errorf("%s: %w", name, target.ErrNoConstructor)})
			return nil
		}
		t.Callable = s.literal(td.spec, st, crossPackage)
	}
	if !s.applyRequired(t) {
		return nil
	}
	return t
}

// constructs returns the name of the package type fd constructs, or "" if
// fd is not a constructor. Constructors are named New… (or new…) and return
// T or *T as their first result.
func (s *scanner) constructs(fd *ast.FuncDecl) string {
	name := fd.Name.Name
	if !strings.HasPrefix(name, "New") && !strings.HasPrefix(name, "new") {
		return ""
	}
	if fd.Type.Results == nil || len(fd.Type.Results.List) == 0 {
		return ""
	}
	typeName := localTypeName(fd.Type.Results.List[0].Type)
	if _, ok := s.types[typeName]; !ok {
		return ""
	}
	return typeName
}

func (s *scanner) callable(fd *funcDecl) target.Callable {
	c := target.Callable{
		Kind:       target.CallFunction,
		Name:       fd.decl.Name.Name,
		TypeParams: typeParams(fd.decl.Type.TypeParams),
		Params:     params(fd.decl.Type.Params),
		Exported:   fd.decl.Name.IsExported(),
		Pos:        s.position(fd.decl),
	}
	if typeName := s.constructs(fd.decl); typeName != "" {
		c.Kind = target.CallConstructor
		c.TypeName = typeName
	}
	if fd.decl.Type.Results != nil {
		for _, field := range fd.decl.Type.Results.List {
			n := max(len(field.Names), 1)
			for range n {
				c.Results = append(c.Results, field.Type)
			}
		}
	}
	return c
}

// literal describes constructing a struct through a composite literal, one
// parameter per settable field.
func (s *scanner) literal(spec *ast.TypeSpec, st *ast.StructType, crossPackage bool) target.Callable {
	c := target.Callable{
		Kind:       target.CallLiteral,
		TypeName:   spec.Name.Name,
		TypeParams: typeParams(spec.TypeParams),
		Exported:   spec.Name.IsExported(),
		Pos:        s.position(spec),
	}
	for _, field := range st.Fields.List {
		opts := tagOptions(field.Tag)
		if slices.Contains(opts, "-") {
			continue
		}
		names := make([]string, 0, len(field.Names))
		for _, n := range field.Names {
			names = append(names, n.Name)
		}
		if len(names) == 0 {
			names = append(names, baseTypeName(field.Type))
		}
		for _, name := range names {
			if name == "_" || name == "" || (crossPackage && !ast.IsExported(name)) {
				continue
			}
			c.Params = append(c.Params, target.Param{
				Name:     name,
				Field:    name,
				Type:     field.Type,
				Required: slices.Contains(opts, "required"),
			})
		}
	}

	var result ast.Expr = ast.NewIdent(spec.Name.Name)
	if len(c.TypeParams) > 0 {
		indices := make([]ast.Expr, len(c.TypeParams))
		for i, tp := range c.TypeParams {
			indices[i] = ast.NewIdent(tp.Name)
		}
		result = &ast.IndexListExpr{X: result, Indices: indices}
	}
	c.Results = []ast.Expr{&ast.StarExpr{X: result}}
	return c
}

// applyRequired marks the parameters named by the request's required
// option. It reports false if a name does not match any parameter.
func (s *scanner) applyRequired(t *target.Target) bool {
	ok := true
	for _, name := range t.Request.Required {
		found := false
		for i := range t.Callable.Params {
			if t.Callable.Params[i].Name == name {
				t.Callable.Params[i].Required = true
				found = true
			}
		}
		if !found {
			s.diags.Add(diag.Errorf(t.Pos, "required parameter %q not found in %s", name, t.SimpleName()))
			ok = false
		}
	}
	return ok
}

// samePackage reports whether the request generates into the package
// declaring the target.
func samePackage(req marker.Request, pkg *target.Package) bool {
	if req.PackageName == nil {
		return true
	}
	switch p := *req.PackageName; p {
	case ".", "./", pkg.ImportPath:
		return true
	}
	return false
}

func typeParams(fields *ast.FieldList) []target.TypeParam {
	if fields == nil {
		return nil
	}
	var tps []target.TypeParam
	for _, f := range fields.List {
		for _, n := range f.Names {
			tps = append(tps, target.TypeParam{Name: n.Name, Constraint: f.Type})
		}
	}
	return tps
}

func params(fields *ast.FieldList) []target.Param {
	if fields == nil {
		return nil
	}
	taken := make(map[string]bool)
	for _, f := range fields.List {
		for _, n := range f.Names {
			taken[n.Name] = true
		}
	}
	// Unnamed and blank parameters are named p<index>.
	placeholder := func(i int) string {
		name := "p" + strconv.Itoa(i)
		for taken[name] {
			name += "_"
		}
		taken[name] = true
		return name
	}
	var ps []target.Param
	for _, f := range fields.List {
		typ, variadic := f.Type, false
		if ell, ok := typ.(*ast.Ellipsis); ok {
			typ, variadic = ell.Elt, true
		}
		if len(f.Names) == 0 {
			ps = append(ps, target.Param{Name: placeholder(len(ps)), Type: typ, Variadic: variadic})
			continue
		}
		for _, n := range f.Names {
			name := n.Name
			if name == "_" {
				name = placeholder(len(ps))
			}
			ps = append(ps, target.Param{Name: name, Type: typ, Variadic: variadic})
		}
	}
	return ps
}

func countParams(fields *ast.FieldList) int {
	return len(params(fields))
}

// baseTypeName strips pointers, qualifiers and instantiations from a type
// expression: *pkg.T[A] yields T.
func baseTypeName(expr ast.Expr) string {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.SelectorExpr:
			return e.Sel.Name
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

// localTypeName is baseTypeName for types of the scanned package; it
// returns "" for qualified types.
func localTypeName(expr ast.Expr) string {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

func tagOptions(tag *ast.BasicLit) []string {
	if tag == nil {
		return nil
	}
	raw, err := strconv.Unquote(tag.Value)
	if err != nil {
		return nil
	}
	value, ok := reflect.StructTag(raw).Lookup(structTag)
	if !ok {
		return nil
	}
	return strings.Split(value, ",")
}

// fileImports maps the names a file refers to its imports by.
func fileImports(f *ast.File) target.Imports {
	imports := target.Imports{}
	for _, spec := range f.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := gomod.GuessName(p)
		if spec.Name != nil {
			name = spec.Name.Name
		}
		if name == "_" {
			continue
		}
		imports[name] = p
	}
	return imports
}

// Package synth turns normalized targets into the structural model of the
// builders to generate.
//
// For a target
//
//	func NewPair[A, B any](a A, b B) *Pair[A, B]
//
// the model describes roughly
//
//	type Pair_Builder[A any, B any] struct {
//		a       A
//		b       B
//		present [2]bool
//	}
//
//	func (b *Pair_Builder[A, B]) GetA() A
//	func (b *Pair_Builder[A, B]) SetA(v A)
//	func (b *Pair_Builder[A, B]) WithA(v A) *Pair_Builder[A, B]
//	func (b *Pair_Builder[A, B]) HasA() bool
//	...
//	func (b *Pair_Builder[A, B]) Build() *Pair[A, B]
package synth

import (
	"fmt"
	"go/token"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"shireesh.com/buildergen/internal/diag"
	"shireesh.com/buildergen/internal/naming"
	"shireesh.com/buildergen/internal/target"
)

// Field is one builder input and its accessors.
type Field struct {
	// Param is the parameter (or struct field) name of the target.
	Param string
	// Name is the builder's field holding the value.
	Name string
	// Type is the stored type; variadic parameters are stored as slices.
	Type string
	// ParamType is the type accepted by Set and With.
	ParamType string
	Getter    string
	Setter    string
	With      string
	Has       string
	Index     int
	Required  bool
	Variadic  bool
	// Arg is the expression passed to the target when building.
	Arg string
}

// Builder is the model of one generated builder type.
type Builder struct {
	Name       string
	Public     bool
	Target     *target.Target
	TypeParams string
	TypeArgs   string
	Receiver   string
	Value      string
	Presence   string
	Fields     []Field
	// Callee is the qualified function Build calls or, for literals, the
	// qualified type it constructs.
	Callee  string
	Literal bool
	// Results is the result list of Build, ready to print.
	Results string
	// Call is the expression Build evaluates.
	Call string
	// ErrorsPkg is the alias of package errors, set when Validate is
	// generated.
	ErrorsPkg string
	// Errs is the local slice Validate collects into.
	Errs string
}

// Self is the builder's receiver type.
func (b *Builder) Self() string {
	return "*" + b.Name + b.TypeArgs
}

// HasRequired reports whether a Validate method is generated.
func (b *Builder) HasRequired() bool {
	for _, f := range b.Fields {
		if f.Required {
			return true
		}
	}
	return false
}

// File is one generated file: all builders of an output package.
type File struct {
	PackageName string
	PackagePath string
	Dir         string
	// Path is the file to write.
	Path     string
	Builders []*Builder

	imports *importSet
}

// NewFile creates an empty file for the package of id.
func NewFile(id naming.Identity, fileName string) *File {
	return &File{
		PackageName: id.PackageName,
		PackagePath: id.PackagePath,
		Dir:         id.Dir,
		Path:        filepath.Join(id.Dir, fileName),
		imports:     newImportSet(id.PackagePath),
	}
}

// Imports lists the imports the builders of the file need.
func (f *File) Imports() []Import {
	return f.imports.list()
}

// Reserve keeps the builder names of the file from being used as import
// aliases. Call it for every builder before adding any.
func (f *File) Reserve(names ...string) {
	for _, n := range names {
		f.imports.reserve(n)
	}
}

// Add synthesizes the builder for t under identity id and appends it to the
// file. Builders are kept sorted by name.
func (f *File) Add(t *target.Target, id naming.Identity) (*Builder, error) {
	if _, dot := t.Imports["."]; dot {
		return nil, diag.Errorf(t.Pos, "%s: dot imports are not supported in files declaring builder targets", t.SimpleName())
	}

	q := newQualifier(t, f.imports)
	c := t.Callable
	b := &Builder{
		Name:   id.Name,
		Public: id.Public,
		Target: t,
	}

	if len(c.TypeParams) > 0 {
		params := make([]string, len(c.TypeParams))
		args := make([]string, len(c.TypeParams))
		for i, tp := range c.TypeParams {
			params[i] = tp.Name + " " + q.expr(tp.Constraint)
			args[i] = tp.Name
		}
		b.TypeParams = "[" + strings.Join(params, ", ")
		if len(params) == 1 && (strings.HasPrefix(params[0], tp0(c)+" *") || strings.HasPrefix(params[0], tp0(c)+" (")) {
			// [T *int] would parse as an array length.
			b.TypeParams += ","
		}
		b.TypeParams += "]"
		b.TypeArgs = "[" + strings.Join(args, ", ") + "]"
	}

	methods := map[string]string{}
	fieldNames := map[string]bool{}
	for i, p := range c.Params {
		name := naming.Uncapitalize(p.Name)
		if token.IsKeyword(name) {
			name += "_"
		}
		field := Field{
			Param:    p.Name,
			Name:     unique(name, fieldNames),
			Type:     q.expr(p.Type),
			Index:    i,
			Required: p.Required,
			Variadic: p.Variadic,
		}
		fieldNames[field.Name] = true
		field.ParamType = field.Type
		if p.Variadic {
			field.ParamType = "..." + field.Type
			field.Type = "[]" + field.Type
		}

		suffix := naming.Capitalize(p.Name)
		field.Getter = "Get" + suffix
		if isBool(p.Type) && !p.Variadic {
			field.Getter = "Is" + suffix
		}
		field.Setter = "Set" + suffix
		field.With = "With" + suffix
		field.Has = "Has" + suffix
		for _, m := range []string{field.Getter, field.Setter, field.With, field.Has} {
			if other, dup := methods[m]; dup {
				return nil, diag.Errorf(t.Pos, "parameters %s and %s of %s both generate method %s", other, p.Name, t.SimpleName(), m)
			}
			methods[m] = p.Name
		}
		b.Fields = append(b.Fields, field)
	}
	b.Presence = unique("present", fieldNames)

	if b.HasRequired() {
		b.ErrorsPkg = f.imports.add("errors", "errors")
		q.used[b.ErrorsPkg] = true
	}

	callee := q.callee()
	results := make([]string, len(c.Results))
	for i, r := range c.Results {
		results[i] = q.expr(r)
	}
	switch len(results) {
	case 0:
	case 1:
		b.Results = results[0]
	default:
		b.Results = "(" + strings.Join(results, ", ") + ")"
	}
	if q.err != nil {
		return nil, diag.Wrap(t.Pos, fmt.Errorf("%s: %w", t.SimpleName(), q.err))
	}

	// Local names must not shadow what the method bodies reference.
	reserved := map[string]bool{}
	for a := range q.used {
		reserved[a] = true
	}
	for _, tp := range c.TypeParams {
		reserved[tp.Name] = true
	}
	if c.Kind != target.CallLiteral && !strings.Contains(callee, ".") {
		reserved[callee] = true
	}
	b.Receiver = unique("b", reserved)
	reserved[b.Receiver] = true
	b.Value = unique("v", reserved)
	reserved[b.Value] = true
	b.Errs = unique("errs", reserved)

	args := make([]string, len(b.Fields))
	for i := range b.Fields {
		fl := &b.Fields[i]
		fl.Arg = b.Receiver + "." + fl.Name
		if c.Params[i].Variadic {
			fl.Arg += "..."
		}
		args[i] = fl.Arg
	}

	switch c.Kind {
	case target.CallLiteral:
		elems := make([]string, len(b.Fields))
		for i, fl := range b.Fields {
			elems[i] = c.Params[i].Field + ": " + fl.Arg
		}
		b.Callee = callee
		b.Literal = true
		b.Call = "&" + callee + b.TypeArgs + "{" + strings.Join(elems, ", ") + "}"
	default:
		b.Callee = callee
		b.Call = callee + b.TypeArgs + "(" + strings.Join(args, ", ") + ")"
	}

	f.Builders = append(f.Builders, b)
	sort.SliceStable(f.Builders, func(i, j int) bool { return f.Builders[i].Name < f.Builders[j].Name })
	return b, nil
}

// callee returns the qualified reference to the called function or, for
// literals, the constructed type.
func (q *qualifier) callee() string {
	c := q.t.Callable
	if c.Kind == target.CallLiteral {
		return q.local(c.TypeName)
	}
	return q.local(c.Name)
}

func tp0(c target.Callable) string {
	return c.TypeParams[0].Name
}

// unique returns name, or name with a numeric suffix, such that it is not
// in taken.
func unique(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	for i := 1; ; i++ {
		candidate := name + strconv.Itoa(i)
		if !taken[candidate] {
			return candidate
		}
	}
}

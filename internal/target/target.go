// Package target defines the canonical descriptor of a declaration marked
// for builder generation.
//
// Wherever the directive is written (type, constructor or function), the
// extractor normalizes it into a single Callable: the thing the generated
// Build method calls. Later stages only ever look at the Callable.
package target

import (
	"errors"
	"go/ast"
	"go/token"

	"shireesh.com/buildergen/internal/gomod"
	"shireesh.com/buildergen/internal/marker"
)

// ErrNoConstructor is reported for a marked type that has neither an
// accessible constructor nor a struct literal to fall back on.
var ErrNoConstructor = errors.New("no accessible constructor found")

// Kind is the kind of declaration the directive was attached to.
type Kind int

const (
	KindType Kind = iota
	KindConstructor
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindConstructor:
		return "constructor"
	case KindFunction:
		return "function"
	}
	return "unknown"
}

// CallKind is how the generated Build method produces its result.
type CallKind int

const (
	// CallConstructor calls a New… function returning the target type.
	CallConstructor CallKind = iota
	// CallFunction calls a plain function and returns its results.
	CallFunction
	// CallLiteral builds a struct with a composite literal.
	CallLiteral
)

func (k CallKind) String() string {
	switch k {
	case CallConstructor:
		return "constructor"
	case CallFunction:
		return "function"
	case CallLiteral:
		return "literal"
	}
	return "unknown"
}

// Package is the package declaring a target.
type Package struct {
	Name       string
	ImportPath string
	Dir        string
	Module     gomod.Module
	Fset       *token.FileSet
}

// Imports maps the package names used in a file to import paths.
type Imports map[string]string

// TypeParam is a type parameter with its constraint.
type TypeParam struct {
	Name       string
	Constraint ast.Expr
}

// Param is one builder input.
type Param struct {
	// Name is the parameter (or field) name. Unnamed parameters are named
	// p0, p1, ... by position.
	Name string
	// Field is the struct field a literal target assigns. Empty for calls.
	Field string
	// Type is the parameter type without the variadic ellipsis.
	Type     ast.Expr
	Variadic bool
	Required bool
}

// Callable is the normalized form of every target.
type Callable struct {
	Kind CallKind
	// Name is the called function. Empty for literals.
	Name string
	// TypeName is the type a constructor or literal produces. Empty for
	// functions.
	TypeName   string
	TypeParams []TypeParam
	Params     []Param
	// Results are the result types Build returns.
	Results []ast.Expr
	// Exported reports whether the callable (or literal type) can be
	// referenced from another package.
	Exported bool
	Pos      token.Position
}

// Target is a marked declaration, normalized.
type Target struct {
	Origin   Kind
	Package  *Package
	Imports  Imports
	Callable Callable
	Request  marker.Request
	Pos      token.Position
}

// SimpleName is the name the default builder name is derived from: the
// constructed type for constructors and literals, the function name for
// functions.
func (t *Target) SimpleName() string {
	if t.Callable.TypeName != "" {
		return t.Callable.TypeName
	}
	return t.Callable.Name
}

// ParamNames returns the parameter names in order.
func (c Callable) ParamNames() []string {
	names := make([]string, len(c.Params))
	for i, p := range c.Params {
		names[i] = p.Name
	}
	return names
}

package extract

import (
	"context"
	"go/ast"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shireesh.com/buildergen/internal/target"
	"shireesh.com/buildergen/internal/testmod"
)

func TestFindPackages(t *testing.T) {
	root := testmod.Write(t, map[string]string{
		"a/a.go":                       "package a\n",
		"a/b/b.go":                     "package b\n",
		"onlytests/x_test.go":          "package onlytests\n",
		"gen/zz_generated.builders.go": "package gen\n",
		"testdata/t.go":                "package testdata\n",
		"vendor/v/v.go":                "package v\n",
		"_hidden/h.go":                 "package h\n",
		".git/g.go":                    "package g\n",
		"mocks/m/m.go":                 "package m\n",
		"docs/readme.md":               "docs\n",
	})
	exclude, err := CompileExcludes([]string{"mocks/**"})
	require.NoError(t, err)

	dirs, err := FindPackages(root, exclude, "zz_generated.builders.go")
	require.NoError(t, err)
	var rel []string
	for _, d := range dirs {
		r, err := filepath.Rel(root, d)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"a", "a/b", "gen"}, rel)
}

func TestCompileExcludesInvalid(t *testing.T) {
	_, err := CompileExcludes([]string{"[a"})
	assert.Error(t, err)
}

func scanSource(t *testing.T, src string) ([]*target.Target, error) {
	t.Helper()
	root := testmod.Write(t, map[string]string{"p/p.go": src})
	pkg, targets, err := ScanPackage(context.Background(), testmod.Dir(root, "p"))
	require.NotNil(t, pkg)
	assert.Equal(t, "example.com/m/p", pkg.ImportPath)
	return targets, err
}

func TestScanNormalizesTypes(t *testing.T) {
	targets, err := scanSource(t, `package p

//buildergen:generate
type Server struct{ host string }

func NewServer(host string) *Server { return nil }

func NewServerFull(host string, port int) (*Server, error) { return nil, nil }

func NewServerOther(addr string, timeout int) *Server { return nil }

//buildergen:generate className=Marked
func NewServerMarked(a, b, c string) *Server { return nil }

func NewClient(host string) *Server { return nil }

func newServerHidden(a, b, c, d string) Server { return Server{} }
`)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	typ := targets[0]
	assert.Equal(t, target.KindType, typ.Origin)
	assert.Equal(t, "Server", typ.SimpleName())
	// The marked constructor is excluded; the unexported one has the most
	// parameters and is usable from the same package.
	assert.Equal(t, "newServerHidden", typ.Callable.Name)
	assert.Equal(t, target.CallConstructor, typ.Callable.Kind)

	marked := targets[1]
	assert.Equal(t, target.KindConstructor, marked.Origin)
	assert.Equal(t, []string{"a", "b", "c"}, marked.Callable.ParamNames())
}

func TestScanTieBreakAndCrossPackage(t *testing.T) {
	targets, err := scanSource(t, `package p

//buildergen:generate packageName=example.com/m/out
type Server struct{ Host string }

func NewServerA(host string, port int) *Server { return nil }

func NewServerB(addr string, timeout int) *Server { return nil }

func newServer(a, b, c string) *Server { return nil }
`)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "NewServerA", targets[0].Callable.Name)
	assert.Equal(t, []string{"host", "port"}, targets[0].Callable.ParamNames())
}

func TestScanLiteralFallback(t *testing.T) {
	targets, err := scanSource(t, `package p

import "time"

//buildergen:generate
type Options[T any] struct {
	Name    string `+"`builder:\"required\"`"+`
	Timeout time.Duration
	value   T
	skip    int `+"`builder:\"-\"`"+`
	_       int
	time.Location
}
`)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	c := targets[0].Callable
	assert.Equal(t, target.CallLiteral, c.Kind)
	assert.Equal(t, "Options", c.TypeName)
	assert.Equal(t, []string{"Name", "Timeout", "value", "Location"}, c.ParamNames())
	assert.True(t, c.Params[0].Required)
	assert.False(t, c.Params[1].Required)
	assert.Equal(t, "Location", c.Params[3].Field)
	require.Len(t, c.TypeParams, 1)
	require.Len(t, c.Results, 1)
	star, ok := c.Results[0].(*ast.StarExpr)
	require.True(t, ok)
	assert.IsType(t, &ast.IndexListExpr{}, star.X)
	assert.Equal(t, "time", targets[0].Imports["time"])
}

func TestScanFunctions(t *testing.T) {
	targets, err := scanSource(t, `package p

// Sum adds numbers.
//
//buildergen:generate required=base
//buildergen:generate className=Adder
func Sum(base int, _ string, nums ...int) (total int, err error) { return 0, nil }

//buildergen:generate
func NewThing(int, string) *Unknown { return nil }

type Unknown struct{}
`)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	sum := targets[0]
	assert.Equal(t, target.KindFunction, sum.Origin)
	assert.Equal(t, target.CallFunction, sum.Callable.Kind)
	assert.Equal(t, "Sum", sum.SimpleName())
	assert.Equal(t, []string{"base", "p1", "nums"}, sum.Callable.ParamNames())
	assert.True(t, sum.Callable.Params[0].Required)
	assert.True(t, sum.Callable.Params[2].Variadic)
	assert.Len(t, sum.Callable.Results, 2)
	require.NotNil(t, sum.Request.ClassName)
	assert.Equal(t, "Adder", *sum.Request.ClassName)
	assert.Equal(t, 7, sum.Pos.Line)

	thing := targets[1]
	assert.Equal(t, target.KindConstructor, thing.Origin)
	assert.Equal(t, "Unknown", thing.SimpleName())
	assert.Equal(t, []string{"p0", "p1"}, thing.Callable.ParamNames())
}

func TestScanPlaceholderNames(t *testing.T) {
	targets, err := scanSource(t, `package p

//buildergen:generate
func Mix(p1 int, _ string, _ bool) {}
`)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, []string{"p1", "p1_", "p2"}, targets[0].Callable.ParamNames())
}

func TestScanDiagnostics(t *testing.T) {
	targets, err := scanSource(t, `package p

type T struct{}

//buildergen:generate
func (T) Method(a int) {}

//buildergen:generate
var v = 1

const (
	//buildergen:generate
	c = 1
)

func body() {
	//buildergen:generate
	type local struct{}
}

//buildergen:generate
type ID string

//buildergen:generate required=missing
func Make(a int) int { return a }

//buildergen:generate colour=red
func Paint(a int) {}

//buildergen:generate
func Valid(a int) {}

//buildergen:generate
type (
	A struct{ X int }
	B struct{ Y int }
)

type (
	//buildergen:generate
	C struct{ Z int }
	D struct{ W int }
)
`)
	require.Error(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "Valid", targets[0].Callable.Name)
	// Only the spec carrying the directive in a group is a target.
	assert.Equal(t, "C", targets[1].SimpleName())

	msg := err.Error()
	for _, want := range []string{
		"p.go:6:1: method Method cannot be a builder target",
		"p.go:9:1: invalid buildergen:generate placement",
		"p.go:13:2: invalid buildergen:generate placement",
		"p.go:18:2: invalid buildergen:generate placement",
		"p.go:22:6: ID: " + target.ErrNoConstructor.Error(),
		`p.go:25:1: required parameter "missing" not found in Make`,
		"p.go:28:1:",
		"p.go:34:1: invalid buildergen:generate placement: grouped type declaration",
	} {
		assert.Contains(t, msg, want)
	}
	assert.ErrorIs(t, err, target.ErrNoConstructor)
	// Diagnostics are sorted by position.
	assert.Less(t, strings.Index(msg, ":6:1:"), strings.Index(msg, ":22:6:"))
}

func TestScanPackageNameMismatch(t *testing.T) {
	root := testmod.Write(t, map[string]string{
		"p/a.go": "package p\n\n//buildergen:generate\nfunc A(x int) {}\n",
		"p/b.go": "package q\n",
	})
	_, targets, err := ScanPackage(context.Background(), testmod.Dir(root, "p"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found packages p and q")
	assert.Len(t, targets, 1)
}

func TestExtract(t *testing.T) {
	root := testmod.Write(t, map[string]string{
		"a/a.go":     "package a\n\n//buildergen:generate\nfunc A(x int) {}\n",
		"b/b.go":     "package b\n\n//buildergen:generate\nfunc B(x int) {}\n",
		"c/c.go":     "package c\n\n//buildergen:generate\nfunc (int) {}\n",
		"d/d.go":     "package d\n",
		"mocks/m.go": "package mocks\n\n//buildergen:generate\nfunc M(x int) {}\n",
	})
	exclude, err := CompileExcludes([]string{"mocks"})
	require.NoError(t, err)

	e := &Extractor{Exclude: exclude, GeneratedFile: "zz_generated.builders.go", Workers: 2}
	_, err = e.Extract(context.Background(), testmod.Dir(root, "c"))
	require.Error(t, err, "unparsable files are reported")

	res, err := e.Extract(context.Background(), testmod.Dir(root, "a"), testmod.Dir(root, "b"), testmod.Dir(root, "d"), testmod.Dir(root, "a"))
	require.NoError(t, err)
	require.Len(t, res.Packages, 3)
	require.Len(t, res.Targets, 2)
	assert.Equal(t, "A", res.Targets[0].Callable.Name)
	assert.Equal(t, "B", res.Targets[1].Callable.Name)
}

package emit

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shireesh.com/buildergen/internal/extract"
	"shireesh.com/buildergen/internal/naming"
	"shireesh.com/buildergen/internal/synth"
	"shireesh.com/buildergen/internal/testmod"
)

const pairSource = `package pair

//buildergen:generate
type Pair[A, B any] struct {
	first  A
	second B
}

func NewPair[A, B any](first A, second B) *Pair[A, B] {
	return &Pair[A, B]{first: first, second: second}
}

//buildergen:generate isPublic=false
func join(sep string, verbose bool, parts ...string) (string, int) {
	out := ""
	for _, p := range parts {
		out += p + sep
	}
	return out, len(parts)
}

//buildergen:generate
func Touch(name string) {}
`

// synthesizeDir builds the generated file of the package in dir, assuming
// all of its builders stay in that package.
func synthesizeDir(t *testing.T, dir string) *synth.File {
	t.Helper()
	_, targets, err := extract.ScanPackage(context.Background(), dir)
	require.NoError(t, err)
	require.NotEmpty(t, targets)

	var f *synth.File
	for _, tg := range targets {
		id, err := naming.Resolve(tg, naming.Options{})
		require.NoError(t, err)
		if f == nil {
			f = synth.NewFile(id, "zz_generated.builders.go")
		}
		_, err = f.Add(tg, id)
		require.NoError(t, err)
	}
	return f
}

func TestRender(t *testing.T) {
	root := testmod.Write(t, map[string]string{"pair/pair.go": pairSource})
	dir := testmod.Dir(root, "pair")
	src, err := Render(synthesizeDir(t, dir))
	require.NoError(t, err)

	out := string(src)
	assert.True(t, IsGenerated(src))
	assert.Contains(t, out, "//go:build !ignore_autogenerated")
	assert.NotContains(t, out, "import")
	for _, line := range []string{
		"type Pair_Builder[A any, B any] struct {",
		"func (b *Pair_Builder[A, B]) GetFirst() A {",
		"func (b *Pair_Builder[A, B]) SetFirst(v A) {",
		"func (b *Pair_Builder[A, B]) WithFirst(v A) *Pair_Builder[A, B] {",
		"func (b *Pair_Builder[A, B]) HasSecond() bool {",
		"func (b *Pair_Builder[A, B]) Build() *Pair[A, B] {",
		"type join_Builder struct {",
		"func (b *join_Builder) IsVerbose() bool {",
		"func (b *join_Builder) SetParts(v ...string) {",
		"func (b *join_Builder) GetParts() []string {",
		"func (b *join_Builder) Build() (string, int) {",
		"func (b *Touch_Builder) Build() {",
	} {
		assert.Contains(t, out, line+"\n")
	}
	assert.NotContains(t, out, "Validate")
	assert.NotContains(t, out, "buildergen:generate")

	// The generated file must compile together with the package.
	fset := token.NewFileSet()
	var files []*ast.File
	for name, content := range map[string]string{"pair.go": pairSource, "zz_generated.builders.go": out} {
		f, err := parser.ParseFile(fset, name, content, 0)
		require.NoError(t, err)
		files = append(files, f)
	}
	_, err = (&types.Config{}).Check("example.com/m/pair", fset, files, nil)
	require.NoError(t, err)
}

func TestRenderValidate(t *testing.T) {
	root := testmod.Write(t, map[string]string{
		"cfg/config.go": `package cfg

//buildergen:generate packageName=example.com/m/builders
type Config struct {
	Name string ` + "`builder:\"required\"`" + `
	Port int  ` + "`builder:\"required\"`" + `
	Tags []string
}
`,
	})
	src, err := Render(synthesizeDir(t, testmod.Dir(root, "cfg")))
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, "package builders\n")
	assert.Contains(t, out, "\t\"errors\"\n")
	assert.Contains(t, out, "\t\"example.com/m/cfg\"\n")
	assert.Contains(t, out, "// Validate reports which of the required values Name, Port have not been set.\nfunc (b *Config_Builder) Validate() error {\n")
	assert.Contains(t, out, `errs = append(errs, errors.New("Config_Builder: Name is required"))`)
	assert.Contains(t, out, `errs = append(errs, errors.New("Config_Builder: Port is required"))`)
	assert.Contains(t, out, "return errors.Join(errs...)")
	assert.Contains(t, out, "func (b *Config_Builder) Build() *cfg.Config {\n")
	assert.Contains(t, out, "return &cfg.Config{Name: b.name, Port: b.port, Tags: b.tags}")
	assert.Equal(t, 2, strings.Count(out, "is required"))
}

func TestDirSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pkg", "zz_generated.builders.go")
	content := []byte(Header + "\n\npackage pkg\n")

	var sink DirSink
	require.NoError(t, sink.Write(ctx, path, content))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Unchanged content is not rewritten.
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(ctx, path, content))
	again, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())

	require.NoError(t, sink.Remove(ctx, path))
	assert.NoFileExists(t, path)
	require.NoError(t, sink.Remove(ctx, path))
}

func TestDirSinkKeepsHandWrittenFiles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "zz_generated.builders.go")
	require.NoError(t, os.WriteFile(path, []byte("package mine\n"), 0o644))

	var sink DirSink
	err := sink.Write(ctx, path, []byte(Header+"\n"))
	require.ErrorIs(t, err, ErrNotGenerated)

	require.NoError(t, sink.Remove(ctx, path))
	assert.FileExists(t, path)
}

func TestCheckSink(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	current := filepath.Join(dir, "a.go")
	outdated := filepath.Join(dir, "b.go")
	missing := filepath.Join(dir, "c.go")
	leftover := filepath.Join(dir, "d.go")
	content := []byte(Header + "\n\npackage p\n")
	for _, p := range []string{current, outdated, leftover} {
		require.NoError(t, os.WriteFile(p, content, 0o644))
	}

	sink := &CheckSink{}
	require.NoError(t, sink.Write(ctx, current, content))
	require.NoError(t, sink.Write(ctx, outdated, []byte(Header+"\n\npackage q\n")))
	require.NoError(t, sink.Write(ctx, missing, content))
	require.NoError(t, sink.Remove(ctx, leftover))
	require.NoError(t, sink.Close())

	assert.Equal(t, []string{outdated, missing, leftover}, sink.Stale())
	got, err := os.ReadFile(outdated)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestStdoutSink(t *testing.T) {
	var sb strings.Builder
	sink := NewStdoutSink(&sb)
	require.NoError(t, sink.Write(context.Background(), "p/zz.go", []byte("package p\n")))
	require.NoError(t, sink.Remove(context.Background(), "q/zz.go"))
	assert.Equal(t, "// ==> p/zz.go <==\npackage p\n\n// ==> q/zz.go <== (removed)\n\n", sb.String())
}

func TestArchiveSink(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dest := filepath.Join(root, "out.zip")

	sink := NewArchiveSink(dest, root)
	require.NoError(t, sink.Write(ctx, filepath.Join(root, "p", "zz.go"), []byte("package p\n")))
	require.NoError(t, sink.Remove(ctx, filepath.Join(root, "q", "zz.go")))
	require.NoError(t, sink.Close())
	assert.FileExists(t, dest)
}

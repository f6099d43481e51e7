package extract

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shireesh.com/buildergen/internal/testmod"
)

func TestDeclarations(t *testing.T) {
	root := testmod.Write(t, map[string]string{
		"p/p.go": `package p

type Server struct{}

func (Server) Close() {}

func NewServer() *Server { return nil }

func init() {}

var (
	_    = 1
	a, b = 1, 2
)

const Limit = 3
`,
		"p/p_test.go":                "package p\n\nvar fromTest = 1\n",
		"p/zz_generated.builders.go": "package p\n\ntype Server_Builder struct{}\n",
	})

	names, err := Declarations(testmod.Dir(root, "p"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Server", "NewServer", "a", "b", "Limit"}, keys(names))
	assert.Equal(t, 3, names["Server"].Line)

	names, err = Declarations(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

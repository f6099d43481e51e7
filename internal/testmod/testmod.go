// Package testmod creates throwaway Go modules for tests.
package testmod

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Path is the module path of modules created by Write unless the files
// provide their own go.mod.
const Path = "example.com/m"

// Write creates a module in a temporary directory with the given files,
// keyed by slash separated path, and returns its root.
func Write(t testing.TB, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	if _, ok := files["go.mod"]; !ok {
		require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module "+Path+"\n\ngo 1.24\n"), 0o644))
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

// Dir returns the directory of the package at rel below root.
func Dir(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

package compressor

import (
	"archive/zip"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipFiles(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out", "builders.zip")
	err := ZipFiles(dest, map[string][]byte{
		"b/zz_generated.builders.go":   []byte("package b\n"),
		"a/x/zz_generated.builders.go": []byte("package x\n"),
	})
	require.NoError(t, err)

	r, err := zip.OpenReader(dest)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"a/",
		"a/x/",
		"a/x/zz_generated.builders.go",
		"b/",
		"b/zz_generated.builders.go",
	}, names)

	rc, err := r.File[2].Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "package x\n", string(content))
}

package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// CompileExcludes compiles exclude patterns. Patterns use '/' as separator
// and are matched against slash separated paths relative to the walk root.
func CompileExcludes(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// FindPackages recursively walks root to find all folders containing valid
// Go files. testdata, vendor and directories starting with '.' or '_' are
// skipped, like the go tool does, as are paths matching an exclude pattern.
func FindPackages(root string, exclude []glob.Glob, generatedFile string) ([]string, error) {
	var packages []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if rel, err := filepath.Rel(root, path); err == nil && rel != "." {
			if excluded(filepath.ToSlash(rel), exclude) {
				return filepath.SkipDir
			}
		}
		files, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		for _, file := range files {
			if !file.IsDir() && (isValidGoFile(file.Name()) || file.Name() == generatedFile) {
				packages = append(packages, path)
				break
			}
		}
		return nil
	})
	return packages, err
}

func skipDir(name string) bool {
	return name == "testdata" || name == "vendor" ||
		strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func excluded(rel string, exclude []glob.Glob) bool {
	for _, g := range exclude {
		if g.Match(rel) || g.Match(rel+"/") {
			return true
		}
	}
	return false
}

// isValidGoFile checks if a file should be considered for parsing.
func isValidGoFile(name string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		!strings.HasPrefix(name, "zz_generated.")
}

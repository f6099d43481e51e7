package synth

import (
	"sort"
	"strconv"

	"shireesh.com/buildergen/internal/gomod"
)

// Import is one import of a generated file.
type Import struct {
	Alias string
	Path  string
	// Named reports whether the import needs an explicit name because the
	// alias differs from the name guessed from the path.
	Named bool
}

// importSet allocates collision free aliases for the imports of one
// generated file.
type importSet struct {
	self     string
	byPath   map[string]string
	byAlias  map[string]string
	reserved map[string]bool
}

func newImportSet(self string) *importSet {
	return &importSet{
		self:     self,
		byPath:   map[string]string{},
		byAlias:  map[string]string{},
		reserved: map[string]bool{},
	}
}

// reserve keeps alias from being handed out, e.g. because a builder of the
// same file is declared under that name.
func (s *importSet) reserve(name string) {
	s.reserved[name] = true
}

// add registers importPath and returns the alias to qualify it with, or ""
// if importPath is the generated file's own package.
func (s *importSet) add(importPath, preferred string) string {
	if importPath == s.self {
		return ""
	}
	if alias, ok := s.byPath[importPath]; ok {
		return alias
	}
	if preferred == "" {
		preferred = gomod.GuessName(importPath)
	}
	alias := preferred
	for i := 2; s.taken(alias); i++ {
		alias = preferred + strconv.Itoa(i)
	}
	s.byPath[importPath] = alias
	s.byAlias[alias] = importPath
	return alias
}

func (s *importSet) taken(alias string) bool {
	_, used := s.byAlias[alias]
	return used || s.reserved[alias]
}

func (s *importSet) list() []Import {
	imports := make([]Import, 0, len(s.byPath))
	for p, alias := range s.byPath {
		imports = append(imports, Import{Alias: alias, Path: p, Named: alias != gomod.GuessName(p)})
	}
	sort.Slice(imports, func(i, j int) bool { return imports[i].Path < imports[j].Path })
	return imports
}

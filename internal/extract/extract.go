// Package extract finds declarations marked for builder generation and
// normalizes them into target descriptors.
//
// A marked type is normalized into its longest constructor, so that every
// later stage sees the same Callable whether the directive was written on
// the type or on the constructor itself.
package extract

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/gobwas/glob"
	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"shireesh.com/buildergen/internal/diag"
	"shireesh.com/buildergen/internal/target"
)

// Extractor scans directory trees for targets.
type Extractor struct {
	// Exclude skips matching directories, relative to each root.
	Exclude []glob.Glob
	// GeneratedFile is the name of generated output files. Directories
	// containing only such a file are still reported so stale output can
	// be removed.
	GeneratedFile string
	// Workers bounds the number of packages scanned concurrently.
	// Zero means runtime.NumCPU().
	Workers int
}

// Result is the outcome of an extraction.
type Result struct {
	Targets  []*target.Target
	Packages []*target.Package
}

// Extract scans every package below the given roots. Usage errors of all
// packages are returned joined; the targets that were valid are returned
// regardless.
func (e *Extractor) Extract(ctx context.Context, roots ...string) (*Result, error) {
	var dirs []string
	seen := map[string]bool{}
	for _, root := range roots {
		found, err := FindPackages(root, e.Exclude, e.GeneratedFile)
		if err != nil {
			return nil, err
		}
		for _, d := range found {
			if !seen[d] {
				seen[d] = true
				dirs = append(dirs, d)
			}
		}
	}
	slogcontext.FromCtx(ctx).DebugContext(ctx, "found packages", "count", len(dirs))

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu    sync.Mutex
		res   Result
		diags diag.List
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, dir := range dirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pkg, targets, err := ScanPackage(ctx, dir)
			diags.Add(err)
			if pkg == nil {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			res.Packages = append(res.Packages, pkg)
			res.Targets = append(res.Targets, targets...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(res.Packages, func(i, j int) bool {
		return res.Packages[i].Dir < res.Packages[j].Dir
	})
	sort.SliceStable(res.Targets, func(i, j int) bool {
		a, b := res.Targets[i].Pos, res.Targets[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Offset < b.Offset
	})
	return &res, diags.Err()
}

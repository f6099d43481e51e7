// Package generator drives the pipeline: it extracts targets, resolves and
// synthesizes their builders, then renders one file per output package.
package generator

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"shireesh.com/buildergen/internal/config"
	"shireesh.com/buildergen/internal/diag"
	"shireesh.com/buildergen/internal/emit"
	"shireesh.com/buildergen/internal/extract"
	"shireesh.com/buildergen/internal/naming"
	"shireesh.com/buildergen/internal/synth"
	"shireesh.com/buildergen/internal/target"
)

// ErrStale is returned by Check when generated files are missing or out of
// date.
var ErrStale = errors.New("generated files are out of date")

// Planned is a target together with the identity of its builder.
type Planned struct {
	Target   *target.Target
	Identity naming.Identity
}

// Planning is the outcome of Plan.
type Planning struct {
	Builders []Planned
	// Packages are all scanned packages, with or without targets.
	Packages []*target.Package
	// failed holds the directories of packages in which a target could not
	// be planned. Their output is left untouched.
	failed map[string]bool
}

// Result summarizes a Run.
type Result struct {
	Builders int
	Written  []string
	Removed  []string
}

// Plan extracts the targets below roots and resolves their builders.
// Diagnostics of all packages are returned joined; the builders that could
// be planned are returned regardless.
func Plan(ctx context.Context, cfg *config.Config, roots ...string) (*Planning, error) {
	exclude, err := extract.CompileExcludes(cfg.Exclude)
	if err != nil {
		return nil, err
	}
	ex := &extract.Extractor{
		Exclude:       exclude,
		GeneratedFile: cfg.OutputFile,
		Workers:       cfg.Workers,
	}
	res, err := ex.Extract(ctx, roots...)
	if res == nil {
		return nil, err
	}

	var diags diag.List
	diags.Add(err)

	p := &Planning{Packages: res.Packages, failed: map[string]bool{}}
	for _, d := range failedDirs(err) {
		p.failed[d] = true
	}

	opts := naming.Options{Suffix: cfg.Suffix}
	seen := map[string]*target.Target{}
	declared := map[string]map[string]token.Position{}
	for _, t := range res.Targets {
		id, err := naming.Resolve(t, opts)
		if err != nil {
			diags.Add(err)
			p.failed[t.Package.Dir] = true
			continue
		}
		names, ok := declared[id.Dir]
		if !ok {
			names, err = extract.Declarations(id.Dir)
			if err != nil {
				diags.Add(diag.Wrap(t.Pos, fmt.Errorf("reading declarations of %s: %w", id.PackagePath, err)))
				p.failed[t.Package.Dir] = true
				p.failed[id.Dir] = true
				continue
			}
			declared[id.Dir] = names
		}
		if pos, clash := names[id.Name]; clash {
			diags.Add(diag.Errorf(t.Pos, "builder %s for %s clashes with %s declared at %s; set className",
				id.Name, t.SimpleName(), id.Name, pos))
			p.failed[t.Package.Dir] = true
			p.failed[id.Dir] = true
			continue
		}
		key := id.PackagePath + "." + id.Name
		if prev, dup := seen[key]; dup {
			diags.Add(diag.Errorf(t.Pos, "builder %s in package %s is already generated for %s at %s",
				id.Name, id.PackagePath, prev.SimpleName(), prev.Pos))
			p.failed[t.Package.Dir] = true
			p.failed[id.Dir] = true
			continue
		}
		seen[key] = t
		p.Builders = append(p.Builders, Planned{Target: t, Identity: id})
	}
	slogcontext.FromCtx(ctx).DebugContext(ctx, "planned builders",
		"builders", len(p.Builders), "packages", len(p.Packages))
	return p, diags.Err()
}

// failedDirs returns the directories of the files diagnostics point to.
func failedDirs(err error) []string {
	if err == nil {
		return nil
	}
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	var dirs []string
	for _, e := range errs {
		var d *diag.Diagnostic
		if errors.As(e, &d) && d.Pos.Filename != "" {
			dirs = append(dirs, filepath.Dir(d.Pos.Filename))
		}
	}
	return dirs
}

// Run generates the builders below roots into sink. Output packages
// affected by a diagnostic are skipped; all others are generated. Generated
// files of scanned packages that no longer produce builders are removed.
func Run(ctx context.Context, cfg *config.Config, sink emit.Sink, roots ...string) (*Result, error) {
	log := slogcontext.FromCtx(ctx)

	p, err := Plan(ctx, cfg, roots...)
	if p == nil {
		return nil, err
	}
	var diags diag.List
	diags.Add(err)

	files := map[string]*synth.File{}
	for _, b := range p.Builders {
		f, ok := files[b.Identity.PackagePath]
		if !ok {
			f = synth.NewFile(b.Identity, cfg.OutputFile)
			files[b.Identity.PackagePath] = f
		}
		f.Reserve(b.Identity.Name)
	}
	for _, b := range p.Builders {
		if _, err := files[b.Identity.PackagePath].Add(b.Target, b.Identity); err != nil {
			diags.Add(err)
			p.failed[b.Target.Package.Dir] = true
			p.failed[b.Identity.Dir] = true
		}
	}

	var (
		mu  sync.Mutex
		res = &Result{}
	)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	produced := map[string]bool{}
	for _, f := range sortedFiles(files) {
		produced[f.Dir] = true
		if p.failed[f.Dir] {
			log.WarnContext(ctx, "skipping package with errors", "pkg", f.PackagePath)
			continue
		}
		g.Go(func() error {
			src, err := emit.Render(f)
			if err != nil {
				return err
			}
			if err := sink.Write(gctx, f.Path, src); err != nil {
				return fmt.Errorf("writing %s: %w", f.Path, err)
			}
			mu.Lock()
			defer mu.Unlock()
			res.Builders += len(f.Builders)
			res.Written = append(res.Written, f.Path)
			return nil
		})
	}

	for _, pkg := range p.Packages {
		if produced[pkg.Dir] || p.failed[pkg.Dir] {
			continue
		}
		path := filepath.Join(pkg.Dir, cfg.OutputFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		g.Go(func() error {
			if err := sink.Remove(gctx, path); err != nil {
				return fmt.Errorf("removing %s: %w", path, err)
			}
			mu.Lock()
			defer mu.Unlock()
			res.Removed = append(res.Removed, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(res.Written)
	sort.Strings(res.Removed)
	log.InfoContext(ctx, "generation finished",
		"builders", res.Builders, "files", len(res.Written), "removed", len(res.Removed))
	return res, diags.Err()
}

// Check reports the generated files below roots that are missing, out of
// date or should be removed, wrapped in ErrStale.
func Check(ctx context.Context, cfg *config.Config, roots ...string) error {
	sink := &emit.CheckSink{}
	if _, err := Run(ctx, cfg, sink, roots...); err != nil {
		return err
	}
	if stale := sink.Stale(); len(stale) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrStale, strings.Join(stale, "\n  "))
	}
	return nil
}

func sortedFiles(files map[string]*synth.File) []*synth.File {
	out := make([]*synth.File, 0, len(files))
	for _, f := range files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

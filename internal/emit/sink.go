package emit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	slogcontext "github.com/veqryn/slog-context"

	"shireesh.com/buildergen/internal/compressor"
)

// ErrNotGenerated is returned when a file that would be written or removed
// exists but was not produced by buildergen.
var ErrNotGenerated = errors.New("file exists and was not generated by buildergen")

// Sink receives generated files. Implementations must be safe for
// concurrent use.
type Sink interface {
	// Write stores content under path.
	Write(ctx context.Context, path string, content []byte) error
	// Remove deletes a previously generated file that is no longer
	// produced.
	Remove(ctx context.Context, path string) error
	// Close flushes the sink.
	Close() error
}

// DirSink writes files to disk next to the sources.
type DirSink struct{}

var _ Sink = DirSink{}

func (DirSink) Write(ctx context.Context, path string, content []byte) error {
	existing, err := readGenerated(path)
	if err != nil {
		return err
	}
	if bytes.Equal(existing, content) {
		slogcontext.FromCtx(ctx).DebugContext(ctx, "up to date", "file", path)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return err
	}
	slogcontext.FromCtx(ctx).InfoContext(ctx, "wrote", "file", path)
	return nil
}

// Remove deletes path if it is a generated file. Files written by hand are
// left alone.
func (DirSink) Remove(ctx context.Context, path string) error {
	existing, err := readGenerated(path)
	if errors.Is(err, ErrNotGenerated) {
		return nil
	}
	if err != nil || existing == nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return err
	}
	slogcontext.FromCtx(ctx).InfoContext(ctx, "removed", "file", path)
	return nil
}

func (DirSink) Close() error { return nil }

// readGenerated returns the content of path, nil if it does not exist, or
// ErrNotGenerated if it exists without the generated header.
func readGenerated(path string) ([]byte, error) {
	existing, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !IsGenerated(existing) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotGenerated)
	}
	return existing, nil
}

// StdoutSink prints files instead of writing them.
type StdoutSink struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Sink = (*StdoutSink)(nil)

func NewStdoutSink(w io.Writer) *StdoutSink {
	return &StdoutSink{w: w}
}

func (s *StdoutSink) Write(_ context.Context, path string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "// ==> %s <==\n%s\n", path, content)
	return err
}

func (s *StdoutSink) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "// ==> %s <== (removed)\n\n", path)
	return err
}

func (s *StdoutSink) Close() error { return nil }

// ArchiveSink collects files into a zip archive written on Close. Entries
// are named relative to Root.
type ArchiveSink struct {
	Path string
	Root string

	mu    sync.Mutex
	files map[string][]byte
}

var _ Sink = (*ArchiveSink)(nil)

func NewArchiveSink(path, root string) *ArchiveSink {
	return &ArchiveSink{Path: path, Root: root, files: map[string][]byte{}}
}

func (s *ArchiveSink) Write(_ context.Context, path string, content []byte) error {
	name, err := filepath.Rel(s.Root, path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[filepath.ToSlash(name)] = content
	return nil
}

// Remove is a no-op: the archive only ever holds files that are produced.
func (s *ArchiveSink) Remove(context.Context, string) error { return nil }

func (s *ArchiveSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return compressor.ZipFiles(s.Path, s.files)
}

// CheckSink compares files against the disk without modifying it.
type CheckSink struct {
	mu    sync.Mutex
	stale []string
}

var _ Sink = (*CheckSink)(nil)

func (s *CheckSink) Write(_ context.Context, path string, content []byte) error {
	existing, err := readGenerated(path)
	if err != nil {
		return err
	}
	if existing == nil || !bytes.Equal(existing, content) {
		s.add(path)
	}
	return nil
}

func (s *CheckSink) Remove(_ context.Context, path string) error {
	existing, err := readGenerated(path)
	if errors.Is(err, ErrNotGenerated) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing != nil {
		s.add(path)
	}
	return nil
}

func (s *CheckSink) Close() error { return nil }

func (s *CheckSink) add(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = append(s.stale, path)
}

// Stale returns the files that are missing, outdated or should be removed,
// sorted.
func (s *CheckSink) Stale() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	stale := append([]string(nil), s.stale...)
	sort.Strings(stale)
	return stale
}

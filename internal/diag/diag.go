// Package diag collects positioned usage errors found while processing
// marked declarations.
package diag

import (
	"errors"
	"fmt"
	"go/token"
	"sort"
	"sync"
)

// Diagnostic is an error tied to a source position.
type Diagnostic struct {
	Pos token.Position
	Err error
}

func (d *Diagnostic) Error() string {
	if !d.Pos.IsValid() {
		return d.Err.Error()
	}
	return fmt.Sprintf("%s: %v", d.Pos, d.Err)
}

func (d *Diagnostic) Unwrap() error { return d.Err }

// Errorf creates a Diagnostic at pos.
func Errorf(pos token.Position, format string, args ...any) *Diagnostic {
	return &Diagnostic{Pos: pos, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches pos to err. Errors that already carry a position are
// returned unchanged.
func Wrap(pos token.Position, err error) error {
	if err == nil {
		return nil
	}
	var d *Diagnostic
	if errors.As(err, &d) {
		return err
	}
	return &Diagnostic{Pos: pos, Err: err}
}

// List is a concurrency safe collection of errors.
type List struct {
	mu   sync.Mutex
	errs []error
}

// Add appends err to the list, ignoring nil. Joined errors are flattened.
func (l *List) Add(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		l.errs = append(l.errs, joined.Unwrap()...)
		return
	}
	l.errs = append(l.errs, err)
}

// Len returns the number of collected errors.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errs)
}

// Err returns the collected errors joined and sorted by position, or nil.
func (l *List) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.errs) == 0 {
		return nil
	}
	errs := make([]error, len(l.errs))
	copy(errs, l.errs)
	sort.SliceStable(errs, func(i, j int) bool {
		return less(position(errs[i]), position(errs[j]))
	})
	return errors.Join(errs...)
}

func position(err error) token.Position {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Pos
	}
	return token.Position{}
}

func less(a, b token.Position) bool {
	if a.Filename != b.Filename {
		return a.Filename < b.Filename
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}

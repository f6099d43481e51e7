package diag

import (
	"errors"
	"go/token"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pos(file string, line, col int) token.Position {
	return token.Position{Filename: file, Line: line, Column: col}
}

func TestDiagnostic(t *testing.T) {
	base := errors.New("boom")
	d := Wrap(pos("a.go", 3, 7), base)
	assert.EqualError(t, d, "a.go:3:7: boom")
	assert.ErrorIs(t, d, base)

	// Positions are never overwritten.
	assert.Same(t, d, Wrap(pos("b.go", 1, 1), d))
	assert.NoError(t, Wrap(pos("b.go", 1, 1), nil))

	assert.EqualError(t, Errorf(token.Position{}, "no %s", "position"), "no position")
}

func TestList(t *testing.T) {
	var l List
	require.NoError(t, l.Err())

	var wg sync.WaitGroup
	for _, err := range []error{
		Errorf(pos("b.go", 1, 1), "third"),
		Errorf(pos("a.go", 9, 2), "second"),
		nil,
		errors.Join(Errorf(pos("a.go", 2, 5), "first"), errors.New("unpositioned")),
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Add(err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, l.Len())
	assert.EqualError(t, l.Err(), "unpositioned\na.go:2:5: first\na.go:9:2: second\nb.go:1:1: third")
}

package tui

import (
	"errors"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
)

func TestMapErr(t *testing.T) {
	assert.ErrorIs(t, mapErr(promptui.ErrInterrupt), ErrAborted)
	assert.ErrorIs(t, mapErr(promptui.ErrEOF), ErrAborted)
	assert.NoError(t, mapErr(nil))

	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
}

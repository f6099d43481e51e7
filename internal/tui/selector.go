// Package tui asks the user for values on the terminal.
package tui

import (
	"errors"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("aborted")

// Prompter asks the user for values.
type Prompter interface {
	// Select lets the user pick one of items.
	Select(label string, items []string) (string, error)
	// Input asks for free text. def is returned when the user just presses
	// enter.
	Input(label, def string, validate func(string) error) (string, error)
	// Confirm asks a yes/no question.
	Confirm(label string) (bool, error)
}

// Terminal prompts with promptui.
type Terminal struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

var _ Prompter = Terminal{}

func (t Terminal) Select(label string, items []string) (string, error) {
	prompt := promptui.Select{
		Label:  label,
		Items:  items,
		Stdin:  t.Stdin,
		Stdout: t.Stdout,
	}
	_, result, err := prompt.Run()
	return result, mapErr(err)
}

func (t Terminal) Input(label, def string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   def,
		AllowEdit: true,
		Validate:  promptui.ValidateFunc(validate),
		Stdin:     t.Stdin,
		Stdout:    t.Stdout,
	}
	result, err := prompt.Run()
	return strings.TrimSpace(result), mapErr(err)
}

func (t Terminal) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     t.Stdin,
		Stdout:    t.Stdout,
	}
	_, err := prompt.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	return err == nil, mapErr(err)
}

func mapErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return ErrAborted
	}
	return err
}

package wizard

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrIncomplete is returned by a Validate func to block progress with the
	// generic required-fields message.
	ErrIncomplete = errors.New("step incomplete")

	ErrInvalidDefinition = errors.New("invalid wizard definition")
	ErrNoSteps           = fmt.Errorf("%w: wizard must have at least one step", ErrInvalidDefinition)
	ErrDuplicateStep     = fmt.Errorf("%w: duplicate step id", ErrInvalidDefinition)
)

const (
	incompleteMessage  = "Please complete all required fields"
	enterFailedMessage = "Failed to enter step"
	exitFailedMessage  = "Failed to exit step"
)

// HookFunc runs when a step is entered or left. A non-nil error aborts the
// transition.
type HookFunc func(ctx context.Context, data Data) error

// Step describes one page of a wizard.
type Step struct {
	ID          string
	Title       string
	Description string
	Optional    bool
	CanSkip     bool

	// Validate gates Next. Return ErrIncomplete for the generic message or
	// any other error to show its text.
	Validate func(data Data) error
	OnEnter  HookFunc
	OnExit   HookFunc
}

// check runs Validate and returns the user-facing message, or "" when the
// step may proceed.
func (s Step) check(data Data) string {
	if s.Validate == nil {
		return ""
	}
	err := s.Validate(data)
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrIncomplete) || err.Error() == "" {
		return incompleteMessage
	}
	return err.Error()
}

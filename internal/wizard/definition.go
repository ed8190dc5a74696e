package wizard

import (
	"context"
	"fmt"
	"strings"
)

// Definition is the immutable configuration of a wizard.
type Definition struct {
	ID    string
	Steps *Registry

	OnComplete func(ctx context.Context, data Data) error
	OnCancel   func()

	EnableStateRecovery bool
	AllowStepSkipping   bool
	MobileOptimized     bool
}

// DefinitionOption configures a Definition.
type DefinitionOption func(*Definition)

// OnComplete sets the terminal side effect run when the last step is submitted.
func OnComplete(fn func(ctx context.Context, data Data) error) DefinitionOption {
	return func(d *Definition) { d.OnComplete = fn }
}

// OnCancel sets the cancel callback. Without one the controller falls back
// to its default cancel action.
func OnCancel(fn func()) DefinitionOption {
	return func(d *Definition) { d.OnCancel = fn }
}

// EnableStateRecovery toggles persistence and resume.
func EnableStateRecovery(enabled bool) DefinitionOption {
	return func(d *Definition) { d.EnableStateRecovery = enabled }
}

// AllowStepSkipping lets steps marked CanSkip be skipped.
func AllowStepSkipping(enabled bool) DefinitionOption {
	return func(d *Definition) { d.AllowStepSkipping = enabled }
}

// MobileOptimized lets narrow viewports get the compact layout.
func MobileOptimized(enabled bool) DefinitionOption {
	return func(d *Definition) { d.MobileOptimized = enabled }
}

// NewDefinition builds a Definition. Recovery and mobile optimisation default
// to on. Configuration errors wrap ErrInvalidDefinition.
func NewDefinition(id string, steps []Step, opts ...DefinitionOption) (*Definition, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty wizard id", ErrInvalidDefinition)
	}
	reg, err := NewRegistry(steps...)
	if err != nil {
		return nil, err
	}

	d := &Definition{
		ID:                  id,
		Steps:               reg,
		EnableStateRecovery: true,
		MobileOptimized:     true,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.OnComplete == nil {
		return nil, fmt.Errorf("%w: %s has no completion handler", ErrInvalidDefinition, id)
	}
	return d, nil
}

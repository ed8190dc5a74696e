package wizard

import "fmt"

// Registry is the ordered, immutable list of steps of a wizard.
type Registry struct {
	steps []Step
	index map[string]int
}

// NewRegistry validates the steps and returns a registry. It fails on an empty
// list, an empty step id or a duplicate id.
func NewRegistry(steps ...Step) (*Registry, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}

	r := &Registry{
		steps: make([]Step, len(steps)),
		index: make(map[string]int, len(steps)),
	}
	copy(r.steps, steps)

	for i, s := range r.steps {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: step %d has no id", ErrInvalidDefinition, i)
		}
		if prev, ok := r.index[s.ID]; ok {
			return nil, fmt.Errorf("%w %q (steps %d and %d)", ErrDuplicateStep, s.ID, prev, i)
		}
		r.index[s.ID] = i
	}
	return r, nil
}

// Len returns the number of steps.
func (r *Registry) Len() int { return len(r.steps) }

// At returns the step at index i.
func (r *Registry) At(i int) (Step, bool) {
	if !r.InRange(i) {
		return Step{}, false
	}
	return r.steps[i], true
}

// IndexOf returns the position of the step with the given id, or -1.
func (r *Registry) IndexOf(id string) int {
	if i, ok := r.index[id]; ok {
		return i
	}
	return -1
}

// Steps returns a copy of the ordered steps.
func (r *Registry) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// InRange reports whether i is a valid step index.
func (r *Registry) InRange(i int) bool {
	return i >= 0 && i < len(r.steps)
}

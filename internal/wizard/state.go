package wizard

import "time"

// Status is the controller's lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusTransitioningOut
	StatusTransitioningIn
	StatusCompleting
	StatusCompleted
	StatusCancelled
	StatusError
	StatusAwaitingResume
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusTransitioningOut:
		return "transitioning-out"
	case StatusTransitioningIn:
		return "transitioning-in"
	case StatusCompleting:
		return "completing"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusError:
		return "error"
	case StatusAwaitingResume:
		return "awaiting-resume"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further navigation is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Outcome reports what a controller operation did.
type Outcome int

const (
	// Ignored: the request was dropped (loading, out of range, awaiting resume).
	Ignored Outcome = iota
	// Blocked: validation failed; the error is set and no hooks ran.
	Blocked
	// Advanced: moved forward one step.
	Advanced
	// Moved: moved to a step other than the next one.
	Moved
	// Failed: a lifecycle hook or the completion handler returned an error.
	Failed
	// Completed: the completion handler succeeded.
	Completed
	// Cancelled: the wizard was cancelled.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case Blocked:
		return "blocked"
	case Advanced:
		return "advanced"
	case Moved:
		return "moved"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// State is a read-only projection of the controller.
type State struct {
	Status           Status
	CurrentStepIndex int
	StepID           string
	StepCount        int
	Data             Data
	CompletedStepIDs []string
	IsLoading        bool
	Error            string

	IsFirstStep     bool
	IsLastStep      bool
	ProgressPercent int

	StartedAt    time.Time
	LastActiveAt time.Time

	// NeedsResumeDecision is set while a resumable session waits for
	// Resume or StartOver.
	NeedsResumeDecision bool
}

// IsCompleted reports whether the step with the given id was completed.
func (s State) IsCompleted(stepID string) bool {
	for _, id := range s.CompletedStepIDs {
		if id == stepID {
			return true
		}
	}
	return false
}

// NotificationKind distinguishes completion notifications.
type NotificationKind int

const (
	NotifySuccess NotificationKind = iota
	NotifyFailure
)

// Notification is delivered to the Notifier when completion finishes.
type Notification struct {
	Kind    NotificationKind
	Title   string
	Message string
}

// Notifier receives completion notifications. It is called without the
// controller lock held.
type Notifier func(Notification)

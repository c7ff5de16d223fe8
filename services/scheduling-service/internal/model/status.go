package model

type Status string

const (
	StatusQueued    Status = "queued"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var transitions = map[Status][]Status{
	StatusQueued:    {StatusScheduled, StatusCancelled},
	StatusScheduled: {StatusCompleted, StatusCancelled, StatusNoShow},
}

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusQueued, StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return s, true
	}
	return "", false
}

// Committed statuses consume staff capacity.
func (s Status) Committed() bool {
	return s == StatusScheduled || s == StatusCompleted
}

// Blocking statuses occupy the staff member's time slot.
func (s Status) Blocking() bool {
	return s != StatusCancelled
}

// CanTransitionTo reports whether next is reachable from s. Staying put is always allowed
// and nothing leads back to queued.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

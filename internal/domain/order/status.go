package order

// Status is the order lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPlaced    Status = "placed"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusFulfilled Status = "fulfilled"
)

var transitions = map[Status][]Status{
	StatusDraft:    {StatusPlaced},
	StatusPlaced:   {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusFulfilled},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPlaced, StatusAccepted, StatusRejected, StatusFulfilled:
		return true
	}
	return false
}

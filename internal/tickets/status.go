package tickets

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusUsed      Status = "USED"
)

// IsValid checks if the ticket status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusCancelled, StatusUsed:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition can leave this status
func (s Status) IsTerminal() bool {
	return s == StatusFailed || s == StatusCancelled || s == StatusUsed
}

// IsClosed reports whether the ticket ended without being paid
func (s Status) IsClosed() bool {
	return s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo encodes the ticket lifecycle:
// PENDING -> PAID -> USED, PENDING -> FAILED, PENDING -> CANCELLED.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusPaid || to == StatusFailed || to == StatusCancelled
	case StatusPaid:
		return to == StatusUsed
	}
	return false
}

package enums

import "fmt"

// DisputeStatus tracks the lifecycle of a dispute.
type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "OPEN"
	DisputeStatusUnderReview DisputeStatus = "UNDER_REVIEW"
	DisputeStatusEscalated   DisputeStatus = "ESCALATED"
	DisputeStatusResolved    DisputeStatus = "RESOLVED"
	DisputeStatusClosed      DisputeStatus = "CLOSED"
	DisputeStatusRejected    DisputeStatus = "REJECTED"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusUnderReview,
	DisputeStatusEscalated,
	DisputeStatusResolved,
	DisputeStatusClosed,
	DisputeStatusRejected,
}

// String implements fmt.Stringer.
func (s DisputeStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DisputeStatus.
func (s DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are legal from s.
func (s DisputeStatus) IsTerminal() bool {
	return s == DisputeStatusClosed || s == DisputeStatusRejected
}

// IsActive reports whether the dispute still occupies a moderator queue.
func (s DisputeStatus) IsActive() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusUnderReview, DisputeStatusEscalated:
		return true
	default:
		return false
	}
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}

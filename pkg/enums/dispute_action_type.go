package enums

import "fmt"

// DisputeActionType labels an entry in the append-only dispute action log.
type DisputeActionType string

const (
	ActionCreated       DisputeActionType = "CREATED"
	ActionAssigned      DisputeActionType = "ASSIGNED"
	ActionEvidenceAdded DisputeActionType = "EVIDENCE_ADDED"
	ActionCommentAdded  DisputeActionType = "COMMENT_ADDED"
	ActionEscalated     DisputeActionType = "ESCALATED"
	ActionVoteCast      DisputeActionType = "VOTE_CAST"
	ActionResolved      DisputeActionType = "RESOLVED"
	ActionClosed        DisputeActionType = "CLOSED"
)

var validDisputeActionTypes = []DisputeActionType{
	ActionCreated,
	ActionAssigned,
	ActionEvidenceAdded,
	ActionCommentAdded,
	ActionEscalated,
	ActionVoteCast,
	ActionResolved,
	ActionClosed,
}

// IsValid reports whether the value is a known DisputeActionType.
func (a DisputeActionType) IsValid() bool {
	for _, candidate := range validDisputeActionTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseDisputeActionType converts raw input into a DisputeActionType.
func ParseDisputeActionType(value string) (DisputeActionType, error) {
	for _, candidate := range validDisputeActionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute action type %q", value)
}

package enums

import "fmt"

// EvidenceType classifies an evidence attachment on a dispute.
type EvidenceType string

const (
	EvidenceTypeScreenshot  EvidenceType = "SCREENSHOT"
	EvidenceTypeDocument    EvidenceType = "DOCUMENT"
	EvidenceTypeTransaction EvidenceType = "TRANSACTION"
	EvidenceTypeChatLog     EvidenceType = "CHAT_LOG"
	EvidenceTypeOther       EvidenceType = "OTHER"
)

var validEvidenceTypes = []EvidenceType{
	EvidenceTypeScreenshot,
	EvidenceTypeDocument,
	EvidenceTypeTransaction,
	EvidenceTypeChatLog,
	EvidenceTypeOther,
}

// IsValid reports whether the value is a known EvidenceType.
func (e EvidenceType) IsValid() bool {
	for _, candidate := range validEvidenceTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEvidenceType converts raw input into an EvidenceType.
func ParseEvidenceType(value string) (EvidenceType, error) {
	for _, candidate := range validEvidenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid evidence type %q", value)
}

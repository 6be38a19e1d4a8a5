package enums

import "fmt"

// DisputeSeverity grades how serious a dispute is. Severity drives the
// required moderator level, the reward multiplier, and the points award.
type DisputeSeverity string

const (
	DisputeSeverityLow      DisputeSeverity = "LOW"
	DisputeSeverityMedium   DisputeSeverity = "MEDIUM"
	DisputeSeverityHigh     DisputeSeverity = "HIGH"
	DisputeSeverityCritical DisputeSeverity = "CRITICAL"
)

var validDisputeSeverities = []DisputeSeverity{
	DisputeSeverityLow,
	DisputeSeverityMedium,
	DisputeSeverityHigh,
	DisputeSeverityCritical,
}

// String implements fmt.Stringer.
func (s DisputeSeverity) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DisputeSeverity.
func (s DisputeSeverity) IsValid() bool {
	for _, candidate := range validDisputeSeverities {
		if candidate == s {
			return true
		}
	}
	return false
}

// RequiredLevel maps severity to the moderator level needed to handle it.
func (s DisputeSeverity) RequiredLevel() ModeratorLevel {
	switch s {
	case DisputeSeverityCritical:
		return ModeratorLevelAdmin
	case DisputeSeverityHigh:
		return ModeratorLevelSenior
	default:
		return ModeratorLevelCommunity
	}
}

// ParseDisputeSeverity converts raw input into a DisputeSeverity.
func ParseDisputeSeverity(value string) (DisputeSeverity, error) {
	for _, candidate := range validDisputeSeverities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute severity %q", value)
}

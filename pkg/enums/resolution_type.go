package enums

import "fmt"

// ResolutionType records how a resolved dispute was decided.
type ResolutionType string

const (
	ResolutionTypeApproved  ResolutionType = "APPROVED"
	ResolutionTypeDismissed ResolutionType = "DISMISSED"
	ResolutionTypeRefunded  ResolutionType = "REFUNDED"
	ResolutionTypeWarning   ResolutionType = "WARNING"
	ResolutionTypeSuspended ResolutionType = "SUSPENDED"
)

var validResolutionTypes = []ResolutionType{
	ResolutionTypeApproved,
	ResolutionTypeDismissed,
	ResolutionTypeRefunded,
	ResolutionTypeWarning,
	ResolutionTypeSuspended,
}

// String implements fmt.Stringer.
func (r ResolutionType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ResolutionType.
func (r ResolutionType) IsValid() bool {
	for _, candidate := range validResolutionTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseResolutionType converts raw input into a ResolutionType.
func ParseResolutionType(value string) (ResolutionType, error) {
	for _, candidate := range validResolutionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resolution type %q", value)
}

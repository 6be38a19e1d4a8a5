package enums

import "fmt"

// DisputeType classifies what a dispute is filed against.
type DisputeType string

const (
	DisputeTypeReputationCard DisputeType = "REPUTATION_CARD"
	DisputeTypeOrder          DisputeType = "ORDER"
	DisputeTypeProduct        DisputeType = "PRODUCT"
	DisputeTypeUserConduct    DisputeType = "USER_CONDUCT"
)

var validDisputeTypes = []DisputeType{
	DisputeTypeReputationCard,
	DisputeTypeOrder,
	DisputeTypeProduct,
	DisputeTypeUserConduct,
}

// String implements fmt.Stringer.
func (t DisputeType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known DisputeType.
func (t DisputeType) IsValid() bool {
	for _, candidate := range validDisputeTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseDisputeType converts raw input into a DisputeType.
func ParseDisputeType(value string) (DisputeType, error) {
	for _, candidate := range validDisputeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute type %q", value)
}

package enums

import "fmt"

// ModeratorLevel is the capability tier of a moderator. Levels form a total
// order: COMMUNITY < SENIOR < ADMIN.
type ModeratorLevel string

const (
	ModeratorLevelCommunity ModeratorLevel = "COMMUNITY"
	ModeratorLevelSenior    ModeratorLevel = "SENIOR"
	ModeratorLevelAdmin     ModeratorLevel = "ADMIN"
)

var validModeratorLevels = []ModeratorLevel{
	ModeratorLevelCommunity,
	ModeratorLevelSenior,
	ModeratorLevelAdmin,
}

// String implements fmt.Stringer.
func (l ModeratorLevel) String() string {
	return string(l)
}

// IsValid reports whether the value is a known ModeratorLevel.
func (l ModeratorLevel) IsValid() bool {
	for _, candidate := range validModeratorLevels {
		if candidate == l {
			return true
		}
	}
	return false
}

// Rank returns the position of the level in the hierarchy, starting at 1.
// Unknown levels rank 0 and therefore never satisfy a requirement.
func (l ModeratorLevel) Rank() int {
	switch l {
	case ModeratorLevelCommunity:
		return 1
	case ModeratorLevelSenior:
		return 2
	case ModeratorLevelAdmin:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether l satisfies the required level.
func (l ModeratorLevel) AtLeast(required ModeratorLevel) bool {
	return l.Rank() >= required.Rank()
}

// VoteWeight returns the weight a moderator's vote carries at this level.
func (l ModeratorLevel) VoteWeight() int {
	return l.Rank()
}

// Next returns the level one step up, or false when already at ADMIN.
func (l ModeratorLevel) Next() (ModeratorLevel, bool) {
	switch l {
	case ModeratorLevelCommunity:
		return ModeratorLevelSenior, true
	case ModeratorLevelSenior:
		return ModeratorLevelAdmin, true
	default:
		return "", false
	}
}

// ParseModeratorLevel converts raw input into a ModeratorLevel.
func ParseModeratorLevel(value string) (ModeratorLevel, error) {
	for _, candidate := range validModeratorLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid moderator level %q", value)
}

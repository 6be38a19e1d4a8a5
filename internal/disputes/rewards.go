package disputes

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/veritasmarket/veritas-backend/pkg/enums"
)

// FastResolutionWindow is the cutoff under which a resolution earns the speed
// bonus multiplier.
const FastResolutionWindow = 24 * time.Hour

var (
	rewardBase          = decimal.RequireFromString("0.1")
	fastBonusMultiplier = decimal.RequireFromString("1.2")
)

func levelMultiplier(level enums.ModeratorLevel) decimal.Decimal {
	switch level {
	case enums.ModeratorLevelSenior:
		return decimal.RequireFromString("1.5")
	case enums.ModeratorLevelAdmin:
		return decimal.RequireFromString("2.0")
	default:
		return decimal.RequireFromString("1.0")
	}
}

func severityMultiplier(severity enums.DisputeSeverity) decimal.Decimal {
	switch severity {
	case enums.DisputeSeverityMedium:
		return decimal.RequireFromString("1.2")
	case enums.DisputeSeverityHigh:
		return decimal.RequireFromString("1.5")
	case enums.DisputeSeverityCritical:
		return decimal.RequireFromString("2.0")
	default:
		return decimal.RequireFromString("1.0")
	}
}

// PointsFor returns the gamification points awarded for resolving a dispute
// of the given severity. Points accrue regardless of the reward amount.
func PointsFor(severity enums.DisputeSeverity) int {
	switch severity {
	case enums.DisputeSeverityMedium:
		return 20
	case enums.DisputeSeverityHigh:
		return 30
	case enums.DisputeSeverityCritical:
		return 50
	default:
		return 10
	}
}

// RewardAmount computes the payout owed to the resolving moderator:
//
//	0.1 × levelMultiplier × severityMultiplier × 1.2 when resolved fast
//
// The function is pure; identical inputs always yield an identical amount.
func RewardAmount(level enums.ModeratorLevel, severity enums.DisputeSeverity, fast bool) decimal.Decimal {
	amount := rewardBase.
		Mul(levelMultiplier(level)).
		Mul(severityMultiplier(severity))
	if fast {
		amount = amount.Mul(fastBonusMultiplier)
	}
	return amount
}

// IsFastResolution reports whether the dispute was resolved inside the speed
// bonus window.
func IsFastResolution(createdAt, resolvedAt time.Time) bool {
	return resolvedAt.Sub(createdAt) < FastResolutionWindow
}

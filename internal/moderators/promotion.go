package moderators

import (
	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
)

type promotionRule struct {
	resolved int
	points   int
}

var promotionRules = map[enums.ModeratorLevel]promotionRule{
	enums.ModeratorLevelCommunity: {resolved: 50, points: 500},
	enums.ModeratorLevelSenior:    {resolved: 200, points: 2000},
}

// PromotionFor returns the level a moderator qualifies to be promoted to based
// on their current stats. Promotion is evaluated one step at a time and never
// demotes; ADMIN has no next level.
func PromotionFor(stats *models.ModeratorStats) (enums.ModeratorLevel, bool) {
	if stats == nil {
		return "", false
	}
	rule, ok := promotionRules[stats.Level]
	if !ok {
		return "", false
	}
	if stats.DisputesResolved < rule.resolved || stats.Points < rule.points {
		return "", false
	}
	next, ok := stats.Level.Next()
	if !ok {
		return "", false
	}
	return next, true
}

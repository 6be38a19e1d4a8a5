package disputes

import (
	"strings"

	"github.com/google/uuid"

	"github.com/veritasmarket/veritas-backend/internal/moderators"
)

// pickCandidate selects the moderator with the lowest workload. Ties break on
// earliest registry join time, then ascending moderator id, so a fixed
// candidate set always yields the same pick.
func pickCandidate(candidates []moderators.Candidate) (uuid.UUID, bool) {
	if len(candidates) == 0 {
		return uuid.Nil, false
	}
	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidateLess(candidate, best) {
			best = candidate
		}
	}
	return best.ModeratorID, true
}

func candidateLess(a, b moderators.Candidate) bool {
	if a.Workload != b.Workload {
		return a.Workload < b.Workload
	}
	if !a.JoinedAt.Equal(b.JoinedAt) {
		return a.JoinedAt.Before(b.JoinedAt)
	}
	return strings.Compare(a.ModeratorID.String(), b.ModeratorID.String()) < 0
}

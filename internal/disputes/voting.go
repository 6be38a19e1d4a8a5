package disputes

import (
	"github.com/veritasmarket/veritas-backend/pkg/db/models"
)

const (
	// quorumVotes is the minimum number of votes before a tally can resolve
	// a dispute.
	quorumVotes = 3
	// approvalThresholdPercent is the weighted approval share, in percent,
	// required to auto-resolve.
	approvalThresholdPercent = 66
)

// Tally is the weighted outcome of all votes recorded on a dispute. It is a
// pure function of the vote set, independent of vote order.
type Tally struct {
	Votes          int
	TotalWeight    int
	ApprovalWeight int
}

// TallyVotes folds the vote rows into a weighted tally.
func TallyVotes(votes []models.DisputeVote) Tally {
	var tally Tally
	for _, vote := range votes {
		tally.Votes++
		tally.TotalWeight += vote.Weight
		if vote.Approved {
			tally.ApprovalWeight += vote.Weight
		}
	}
	return tally
}

// Ratio returns the weighted approval share, zero when no weight was cast.
func (t Tally) Ratio() float64 {
	if t.TotalWeight == 0 {
		return 0
	}
	return float64(t.ApprovalWeight) / float64(t.TotalWeight)
}

// Approved reports whether the tally meets quorum and crosses the weighted
// approval threshold. The comparison runs on integers to keep the 66% cutoff
// exact for tallies like 6/9.
func (t Tally) Approved() bool {
	if t.Votes < quorumVotes || t.TotalWeight == 0 {
		return false
	}
	return t.ApprovalWeight*100 >= t.TotalWeight*approvalThresholdPercent
}

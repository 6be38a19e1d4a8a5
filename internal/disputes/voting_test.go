package disputes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veritasmarket/veritas-backend/pkg/db/models"
)

func vote(approved bool, weight int) models.DisputeVote {
	return models.DisputeVote{Approved: approved, Weight: weight}
}

func TestTallyBelowThresholdStaysOpen(t *testing.T) {
	// community approve, senior approve, admin reject: 3/6 = 50%
	tally := TallyVotes([]models.DisputeVote{
		vote(true, 1),
		vote(true, 2),
		vote(false, 3),
	})

	assert.Equal(t, 3, tally.Votes)
	assert.Equal(t, 6, tally.TotalWeight)
	assert.Equal(t, 3, tally.ApprovalWeight)
	assert.InDelta(t, 0.5, tally.Ratio(), 1e-9)
	assert.False(t, tally.Approved())
}

func TestTallyCrossesThresholdOnFourthVote(t *testing.T) {
	// a second admin approval pushes the tally to 6/9 ≈ 66.7%
	tally := TallyVotes([]models.DisputeVote{
		vote(true, 1),
		vote(true, 2),
		vote(false, 3),
		vote(true, 3),
	})

	assert.Equal(t, 9, tally.TotalWeight)
	assert.Equal(t, 6, tally.ApprovalWeight)
	assert.True(t, tally.Approved())
}

func TestTallyExactTwoThirdsApproves(t *testing.T) {
	tally := TallyVotes([]models.DisputeVote{
		vote(true, 1),
		vote(true, 1),
		vote(false, 1),
	})

	assert.True(t, tally.Approved(), "2/3 weighted approval must clear the 66%% cutoff")
}

func TestTallyQuorumRequiresThreeVotes(t *testing.T) {
	tally := TallyVotes([]models.DisputeVote{
		vote(true, 3),
		vote(true, 3),
	})

	assert.InDelta(t, 1.0, tally.Ratio(), 1e-9)
	assert.False(t, tally.Approved())
}

func TestTallyIsOrderIndependent(t *testing.T) {
	votes := []models.DisputeVote{
		vote(true, 2),
		vote(false, 3),
		vote(true, 1),
		vote(true, 3),
	}
	reversed := make([]models.DisputeVote, 0, len(votes))
	for i := len(votes) - 1; i >= 0; i-- {
		reversed = append(reversed, votes[i])
	}

	assert.Equal(t, TallyVotes(votes), TallyVotes(reversed))
}

func TestTallyEmpty(t *testing.T) {
	tally := TallyVotes(nil)
	assert.Zero(t, tally.Ratio())
	assert.False(t, tally.Approved())
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// DisputeVote records one moderator's weighted vote. The (dispute_id, voter_id)
// pair is unique so a moderator can never vote twice on the same dispute.
type DisputeVote struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisputeID uuid.UUID `gorm:"column:dispute_id;type:uuid;not null;uniqueIndex:ux_dispute_votes_dispute_voter"`
	VoterID   uuid.UUID `gorm:"column:voter_id;type:uuid;not null;uniqueIndex:ux_dispute_votes_dispute_voter"`
	Approved  bool      `gorm:"column:approved;not null"`
	Weight    int       `gorm:"column:weight;not null"`
	Rationale *string   `gorm:"column:rationale;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

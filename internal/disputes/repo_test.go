package disputes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	"github.com/veritasmarket/veritas-backend/pkg/pagination"
)

func setupDisputesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS disputes (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  severity TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'OPEN',
  reporter_id TEXT NOT NULL,
  reported_id TEXT NOT NULL,
  subject TEXT NOT NULL,
  description TEXT NOT NULL,
  order_id TEXT,
  card_id TEXT,
  product_id TEXT,
  moderator_level TEXT NOT NULL,
  assigned_to TEXT,
  resolution TEXT,
  resolution_type TEXT,
  resolution_notes TEXT,
  resolved_by TEXT,
  resolved_at DATETIME,
  closed_at DATETIME,
  tx_signature TEXT,
  version INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS dispute_evidence (
  id TEXT PRIMARY KEY,
  dispute_id TEXT NOT NULL,
  uploader_id TEXT NOT NULL,
  type TEXT NOT NULL,
  url TEXT NOT NULL,
  description TEXT,
  metadata TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS dispute_comments (
  id TEXT PRIMARY KEY,
  dispute_id TEXT NOT NULL,
  author_id TEXT NOT NULL,
  body TEXT NOT NULL,
  internal INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS dispute_votes (
  id TEXT PRIMARY KEY,
  dispute_id TEXT NOT NULL,
  voter_id TEXT NOT NULL,
  approved INTEGER NOT NULL,
  weight INTEGER NOT NULL,
  rationale TEXT,
  created_at DATETIME
);`, `
CREATE UNIQUE INDEX IF NOT EXISTS ux_dispute_votes_dispute_voter ON dispute_votes (dispute_id, voter_id);`, `
CREATE TABLE IF NOT EXISTS dispute_actions (
  id TEXT PRIMARY KEY,
  dispute_id TEXT NOT NULL,
  actor_id TEXT NOT NULL,
  type TEXT NOT NULL,
  detail TEXT,
  created_at DATETIME
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestDispute(status enums.DisputeStatus) *models.Dispute {
	return &models.Dispute{
		ID:             uuid.New(),
		Type:           enums.DisputeTypeOrder,
		Severity:       enums.DisputeSeverityHigh,
		Status:         status,
		ReporterID:     uuid.New(),
		ReportedID:     uuid.New(),
		Subject:        "item never delivered",
		Description:    "order marked shipped three weeks ago",
		ModeratorLevel: enums.ModeratorLevelSenior,
	}
}

func TestCreateAndFindByID(t *testing.T) {
	db := setupDisputesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	dispute := newTestDispute(enums.DisputeStatusOpen)
	_, err := repo.Create(ctx, dispute)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, dispute.ID)
	require.NoError(t, err)
	assert.Equal(t, dispute.ID, found.ID)
	assert.Equal(t, enums.DisputeStatusOpen, found.Status)
	assert.Equal(t, enums.ModeratorLevelSenior, found.ModeratorLevel)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindActiveDuplicate(t *testing.T) {
	db := setupDisputesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	existing := newTestDispute(enums.DisputeStatusOpen)
	existing.OrderID = &orderID
	_, err := repo.Create(ctx, existing)
	require.NoError(t, err)

	input := CreateDisputeInput{
		ReporterID: existing.ReporterID,
		ReportedID: existing.ReportedID,
		Type:       existing.Type,
		OrderID:    &orderID,
	}
	dup, err := repo.FindActiveDuplicate(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, dup.ID)

	// a different order link is not a duplicate
	otherOrder := uuid.New()
	other := input
	other.OrderID = &otherOrder
	_, err = repo.FindActiveDuplicate(ctx, other)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// resolved disputes do not block a new filing
	require.NoError(t, db.Exec(`UPDATE disputes SET status = ? WHERE id = ?`, string(enums.DisputeStatusResolved), existing.ID.String()).Error)
	_, err = repo.FindActiveDuplicate(ctx, input)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListFiltersAndTotal(t *testing.T) {
	db := setupDisputesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	open := newTestDispute(enums.DisputeStatusOpen)
	underReview := newTestDispute(enums.DisputeStatusUnderReview)
	resolved := newTestDispute(enums.DisputeStatusResolved)
	for _, d := range []*models.Dispute{open, underReview, resolved} {
		_, err := repo.Create(ctx, d)
		require.NoError(t, err)
	}

	all, total, err := repo.List(ctx, ListFilters{}, pagination.Page{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.EqualValues(t, 3, total)

	status := enums.DisputeStatusOpen
	filtered, total, err := repo.List(ctx, ListFilters{Status: &status}, pagination.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, open.ID, filtered[0].ID)
	assert.EqualValues(t, 1, total)

	// pagination trims the page but not the total
	page, total, err := repo.List(ctx, ListFilters{}, pagination.Page{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.EqualValues(t, 3, total)
}

func TestTryAssignIsConditional(t *testing.T) {
	db := setupDisputesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	dispute := newTestDispute(enums.DisputeStatusOpen)
	_, err := repo.Create(ctx, dispute)
	require.NoError(t, err)

	first := uuid.New()
	second := uuid.New()

	ok, err := repo.TryAssign(ctx, dispute.ID, first, enums.DisputeStatusOpen, enums.DisputeStatusUnderReview)
	require.NoError(t, err)
	assert.True(t, ok)

	// already assigned: the competing write must not land
	ok, err = repo.TryAssign(ctx, dispute.ID, second, enums.DisputeStatusUnderReview, enums.DisputeStatusUnderReview)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindByID(ctx, dispute.ID)
	require.NoError(t, err)
	require.NotNil(t, found.AssignedTo)
	assert.Equal(t, first, *found.AssignedTo)
	assert.Equal(t, enums.DisputeStatusUnderReview, found.Status)
	assert.Equal(t, 1, found.Version)
}

func TestTryAssignWrongStatus(t *testing.T) {
	db := setupDisputesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	dispute := newTestDispute(enums.DisputeStatusResolved)
	_, err := repo.Create(ctx, dispute)
	require.NoError(t, err)

	ok, err := repo.TryAssign(ctx, dispute.ID, uuid.New(), enums.DisputeStatusOpen, enums.DisputeStatusUnderReview)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateCheckedVersionGuard(t *testing.T) {
	db := setupDisputesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	dispute := newTestDispute(enums.DisputeStatusUnderReview)
	_, err := repo.Create(ctx, dispute)
	require.NoError(t, err)

	ok, err := repo.UpdateChecked(ctx, dispute.ID, 0, map[string]any{
		"status": enums.DisputeStatusEscalated,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// the stale writer loses
	ok, err = repo.UpdateChecked(ctx, dispute.ID, 0, map[string]any{
		"status": enums.DisputeStatusResolved,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindByID(ctx, dispute.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DisputeStatusEscalated, found.Status)
	assert.Equal(t, 1, found.Version)
}

func TestVoteUniquePerVoter(t *testing.T) {
	db := setupDisputesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	disputeID := uuid.New()
	voterID := uuid.New()
	_, err := repo.CreateVote(ctx, &models.DisputeVote{
		ID:        uuid.New(),
		DisputeID: disputeID,
		VoterID:   voterID,
		Approved:  true,
		Weight:    2,
	})
	require.NoError(t, err)

	_, err = repo.CreateVote(ctx, &models.DisputeVote{
		ID:        uuid.New(),
		DisputeID: disputeID,
		VoterID:   voterID,
		Approved:  false,
		Weight:    2,
	})
	assert.Error(t, err)

	votes, err := repo.ListVotes(ctx, disputeID)
	require.NoError(t, err)
	assert.Len(t, votes, 1)
}

func TestAppendAndListActions(t *testing.T) {
	db := setupDisputesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	disputeID := uuid.New()
	for _, actionType := range []enums.DisputeActionType{enums.ActionCreated, enums.ActionAssigned} {
		err := repo.AppendAction(ctx, &models.DisputeAction{
			ID:        uuid.New(),
			DisputeID: disputeID,
			ActorID:   uuid.New(),
			Type:      actionType,
		})
		require.NoError(t, err)
	}

	actions, err := repo.ListActions(ctx, disputeID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, enums.ActionCreated, actions[0].Type)
	assert.Equal(t, enums.ActionAssigned, actions[1].Type)
}

func TestCountsAndResolutionDurations(t *testing.T) {
	db := setupDisputesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	resolvedAt := created.Add(time.Hour)

	resolved := newTestDispute(enums.DisputeStatusResolved)
	resolved.CreatedAt = created
	resolved.ResolvedAt = &resolvedAt
	_, err := repo.Create(ctx, resolved)
	require.NoError(t, err)

	open := newTestDispute(enums.DisputeStatusOpen)
	open.CreatedAt = created
	_, err = repo.Create(ctx, open)
	require.NoError(t, err)

	byStatus, err := repo.CountByStatus(ctx, StatsPeriod{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, byStatus[enums.DisputeStatusResolved])
	assert.EqualValues(t, 1, byStatus[enums.DisputeStatusOpen])

	bySeverity, err := repo.CountBySeverity(ctx, StatsPeriod{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, bySeverity[enums.DisputeSeverityHigh])

	durations, err := repo.ResolutionDurations(ctx, StatsPeriod{})
	require.NoError(t, err)
	require.Len(t, durations, 1)
	assert.InDelta(t, 3600, durations[0], 0.5)

	// a window ending before creation sees nothing
	until := created.Add(-time.Minute)
	durations, err = repo.ResolutionDurations(ctx, StatsPeriod{Until: &until})
	require.NoError(t, err)
	assert.Empty(t, durations)

	// created before the window but resolved inside it: still excluded, so
	// the resolved count shares the created_at basis of the totals
	since := created.Add(30 * time.Minute)
	durations, err = repo.ResolutionDurations(ctx, StatsPeriod{Since: &since})
	require.NoError(t, err)
	assert.Empty(t, durations)
}

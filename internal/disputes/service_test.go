package disputes

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/veritasmarket/veritas-backend/internal/moderators"
	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	pkgerrors "github.com/veritasmarket/veritas-backend/pkg/errors"
	"github.com/veritasmarket/veritas-backend/pkg/outbox"
	"github.com/veritasmarket/veritas-backend/pkg/pagination"
)

// memRepo is an in-memory Repository with the same conditional-write
// semantics as the SQL implementation.
type memRepo struct {
	disputes map[uuid.UUID]*models.Dispute
	evidence []models.DisputeEvidence
	comments []models.DisputeComment
	votes    []models.DisputeVote
	actions  []models.DisputeAction
}

func newMemRepo() *memRepo {
	return &memRepo{disputes: map[uuid.UUID]*models.Dispute{}}
}

func (m *memRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memRepo) Create(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error) {
	if dispute.ID == uuid.Nil {
		dispute.ID = uuid.New()
	}
	if dispute.CreatedAt.IsZero() {
		dispute.CreatedAt = time.Now()
	}
	clone := *dispute
	m.disputes[dispute.ID] = &clone
	return dispute, nil
}

func (m *memRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	dispute, ok := m.disputes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *dispute
	return &clone, nil
}

func (m *memRepo) FindActiveDuplicate(ctx context.Context, input CreateDisputeInput) (*models.Dispute, error) {
	for _, dispute := range m.disputes {
		if !dispute.Status.IsActive() {
			continue
		}
		if dispute.ReporterID != input.ReporterID || dispute.ReportedID != input.ReportedID || dispute.Type != input.Type {
			continue
		}
		if input.OrderID != nil && (dispute.OrderID == nil || *dispute.OrderID != *input.OrderID) {
			continue
		}
		if input.CardID != nil && (dispute.CardID == nil || *dispute.CardID != *input.CardID) {
			continue
		}
		if input.ProductID != nil && (dispute.ProductID == nil || *dispute.ProductID != *input.ProductID) {
			continue
		}
		clone := *dispute
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRepo) List(ctx context.Context, filters ListFilters, page pagination.Page) ([]models.Dispute, int64, error) {
	var rows []models.Dispute
	for _, dispute := range m.disputes {
		if filters.Status != nil && dispute.Status != *filters.Status {
			continue
		}
		rows = append(rows, *dispute)
	}
	return rows, int64(len(rows)), nil
}

func (m *memRepo) TryAssign(ctx context.Context, disputeID, moderatorID uuid.UUID, fromStatus, toStatus enums.DisputeStatus) (bool, error) {
	dispute, ok := m.disputes[disputeID]
	if !ok || dispute.Status != fromStatus || dispute.AssignedTo != nil {
		return false, nil
	}
	assignee := moderatorID
	dispute.AssignedTo = &assignee
	dispute.Status = toStatus
	dispute.Version++
	return true, nil
}

func (m *memRepo) UpdateChecked(ctx context.Context, disputeID uuid.UUID, version int, updates map[string]any) (bool, error) {
	dispute, ok := m.disputes[disputeID]
	if !ok || dispute.Version != version {
		return false, nil
	}
	for column, value := range updates {
		applyDisputeColumn(dispute, column, value)
	}
	dispute.Version++
	return true, nil
}

func applyDisputeColumn(dispute *models.Dispute, column string, value any) {
	switch column {
	case "status":
		dispute.Status = value.(enums.DisputeStatus)
	case "assigned_to":
		if value == nil {
			dispute.AssignedTo = nil
			return
		}
		id := value.(uuid.UUID)
		dispute.AssignedTo = &id
	case "moderator_level":
		dispute.ModeratorLevel = value.(enums.ModeratorLevel)
	case "resolution":
		text := value.(string)
		dispute.Resolution = &text
	case "resolution_type":
		rt := value.(enums.ResolutionType)
		dispute.ResolutionType = &rt
	case "resolution_notes":
		dispute.ResolutionNotes, _ = value.(*string)
	case "resolved_by":
		id := value.(uuid.UUID)
		dispute.ResolvedBy = &id
	case "resolved_at":
		at := value.(time.Time)
		dispute.ResolvedAt = &at
	case "closed_at":
		at := value.(time.Time)
		dispute.ClosedAt = &at
	case "tx_signature":
		dispute.TxSignature, _ = value.(*string)
	}
}

func (m *memRepo) CreateEvidence(ctx context.Context, evidence *models.DisputeEvidence) (*models.DisputeEvidence, error) {
	evidence.ID = uuid.New()
	m.evidence = append(m.evidence, *evidence)
	return evidence, nil
}

func (m *memRepo) ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvidence, error) {
	var rows []models.DisputeEvidence
	for _, row := range m.evidence {
		if row.DisputeID == disputeID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *memRepo) CreateComment(ctx context.Context, comment *models.DisputeComment) (*models.DisputeComment, error) {
	comment.ID = uuid.New()
	m.comments = append(m.comments, *comment)
	return comment, nil
}

func (m *memRepo) ListComments(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeComment, error) {
	var rows []models.DisputeComment
	for _, row := range m.comments {
		if row.DisputeID == disputeID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *memRepo) CreateVote(ctx context.Context, vote *models.DisputeVote) (*models.DisputeVote, error) {
	for _, existing := range m.votes {
		if existing.DisputeID == vote.DisputeID && existing.VoterID == vote.VoterID {
			return nil, fmt.Errorf(`duplicate key value violates unique constraint "ux_dispute_votes_dispute_voter"`)
		}
	}
	vote.ID = uuid.New()
	m.votes = append(m.votes, *vote)
	return vote, nil
}

func (m *memRepo) ListVotes(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeVote, error) {
	var rows []models.DisputeVote
	for _, row := range m.votes {
		if row.DisputeID == disputeID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *memRepo) AppendAction(ctx context.Context, action *models.DisputeAction) error {
	action.ID = uuid.New()
	m.actions = append(m.actions, *action)
	return nil
}

func (m *memRepo) ListActions(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeAction, error) {
	var rows []models.DisputeAction
	for _, row := range m.actions {
		if row.DisputeID == disputeID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *memRepo) CountByStatus(ctx context.Context, period StatsPeriod) (map[enums.DisputeStatus]int64, error) {
	out := map[enums.DisputeStatus]int64{}
	for _, dispute := range m.disputes {
		out[dispute.Status]++
	}
	return out, nil
}

func (m *memRepo) CountByType(ctx context.Context, period StatsPeriod) (map[enums.DisputeType]int64, error) {
	out := map[enums.DisputeType]int64{}
	for _, dispute := range m.disputes {
		out[dispute.Type]++
	}
	return out, nil
}

func (m *memRepo) CountBySeverity(ctx context.Context, period StatsPeriod) (map[enums.DisputeSeverity]int64, error) {
	out := map[enums.DisputeSeverity]int64{}
	for _, dispute := range m.disputes {
		out[dispute.Severity]++
	}
	return out, nil
}

func (m *memRepo) ResolutionDurations(ctx context.Context, period StatsPeriod) ([]float64, error) {
	var durations []float64
	for _, dispute := range m.disputes {
		if dispute.ResolvedAt != nil {
			durations = append(durations, dispute.ResolvedAt.Sub(dispute.CreatedAt).Seconds())
		}
	}
	return durations, nil
}

func (m *memRepo) actionTypes(disputeID uuid.UUID) []enums.DisputeActionType {
	var types []enums.DisputeActionType
	for _, action := range m.actions {
		if action.DisputeID == disputeID {
			types = append(types, action.Type)
		}
	}
	return types
}

// memRegistry is an in-memory moderators.Repository.
type memRegistry struct {
	stats      map[uuid.UUID]*models.ModeratorStats
	candidates []moderators.Candidate
}

func newMemRegistry() *memRegistry {
	return &memRegistry{stats: map[uuid.UUID]*models.ModeratorStats{}}
}

func (m *memRegistry) addModerator(level enums.ModeratorLevel, workload int) uuid.UUID {
	id := uuid.New()
	m.stats[id] = &models.ModeratorStats{
		ModeratorID:        id,
		Level:              level,
		TotalEarned:        decimal.Zero,
		CurrentMonthEarned: decimal.Zero,
		Active:             true,
		JoinedAt:           time.Now(),
	}
	m.candidates = append(m.candidates, moderators.Candidate{
		ModeratorID: id,
		Level:       level,
		Workload:    workload,
		JoinedAt:    m.stats[id].JoinedAt,
	})
	return id
}

func (m *memRegistry) WithTx(tx *gorm.DB) moderators.Repository { return m }

func (m *memRegistry) FindByID(ctx context.Context, moderatorID uuid.UUID) (*models.ModeratorStats, error) {
	stats, ok := m.stats[moderatorID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *stats
	return &clone, nil
}

func (m *memRegistry) Ensure(ctx context.Context, moderatorID uuid.UUID, level enums.ModeratorLevel) (*models.ModeratorStats, error) {
	if stats, ok := m.stats[moderatorID]; ok {
		clone := *stats
		return &clone, nil
	}
	m.stats[moderatorID] = &models.ModeratorStats{
		ModeratorID:        moderatorID,
		Level:              level,
		TotalEarned:        decimal.Zero,
		CurrentMonthEarned: decimal.Zero,
		Active:             true,
		JoinedAt:           time.Now(),
	}
	clone := *m.stats[moderatorID]
	return &clone, nil
}

func (m *memRegistry) ListEligible(ctx context.Context, required enums.ModeratorLevel) ([]moderators.Candidate, error) {
	var eligible []moderators.Candidate
	for _, candidate := range m.candidates {
		if candidate.Level.AtLeast(required) {
			eligible = append(eligible, candidate)
		}
	}
	return eligible, nil
}

func (m *memRegistry) ListAll(ctx context.Context) ([]models.ModeratorStats, error) {
	var rows []models.ModeratorStats
	for _, stats := range m.stats {
		rows = append(rows, *stats)
	}
	return rows, nil
}

func (m *memRegistry) ApplyReward(ctx context.Context, moderatorID uuid.UUID, amount decimal.Decimal, points int) error {
	stats, ok := m.stats[moderatorID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stats.DisputesResolved++
	stats.Points += points
	stats.TotalEarned = stats.TotalEarned.Add(amount)
	stats.CurrentMonthEarned = stats.CurrentMonthEarned.Add(amount)
	return nil
}

func (m *memRegistry) Promote(ctx context.Context, moderatorID uuid.UUID, from, to enums.ModeratorLevel) (bool, error) {
	stats, ok := m.stats[moderatorID]
	if !ok || stats.Level != from || to.Rank() <= from.Rank() {
		return false, nil
	}
	stats.Level = to
	return true, nil
}

func (m *memRegistry) ResetMonthlyEarnings(ctx context.Context) (int64, error) {
	var affected int64
	for _, stats := range m.stats {
		if !stats.CurrentMonthEarned.IsZero() {
			stats.CurrentMonthEarned = decimal.Zero
			affected++
		}
	}
	return affected, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) eventTypes() []enums.OutboxEventType {
	var types []enums.OutboxEventType
	for _, event := range f.events {
		types = append(types, event.EventType)
	}
	return types
}

func newTestService(t *testing.T) (Service, *memRepo, *memRegistry, *fakeOutbox) {
	t.Helper()
	repo := newMemRepo()
	registry := newMemRegistry()
	publisher := &fakeOutbox{}
	svc, err := NewService(repo, registry, fakeTxRunner{}, publisher, nil, nil)
	require.NoError(t, err)
	return svc, repo, registry, publisher
}

func validCreateInput() CreateDisputeInput {
	return CreateDisputeInput{
		ReporterID:  uuid.New(),
		ReportedID:  uuid.New(),
		Type:        enums.DisputeTypeOrder,
		Severity:    enums.DisputeSeverityHigh,
		Subject:     "item never delivered",
		Description: "order marked shipped three weeks ago, nothing arrived",
	}
}

func seedDispute(repo *memRepo, status enums.DisputeStatus, severity enums.DisputeSeverity, assignedTo *uuid.UUID) *models.Dispute {
	dispute := &models.Dispute{
		ID:             uuid.New(),
		Type:           enums.DisputeTypeOrder,
		Severity:       severity,
		Status:         status,
		ReporterID:     uuid.New(),
		ReportedID:     uuid.New(),
		Subject:        "subject",
		Description:    "description",
		ModeratorLevel: severity.RequiredLevel(),
		AssignedTo:     assignedTo,
		CreatedAt:      time.Now().Add(-10 * time.Hour),
	}
	clone := *dispute
	repo.disputes[dispute.ID] = &clone
	return dispute
}

func TestCreateRejectsSelfDispute(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	input := validCreateInput()
	input.ReportedID = input.ReporterID
	_, err := svc.Create(context.Background(), input)

	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, repo.disputes)
}

func TestCreateAutoAssignsLeastLoaded(t *testing.T) {
	svc, repo, registry, publisher := newTestService(t)
	busy := registry.addModerator(enums.ModeratorLevelSenior, 3)
	idle := registry.addModerator(enums.ModeratorLevelSenior, 0)
	_ = busy

	dispute, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)

	assert.Equal(t, enums.DisputeStatusUnderReview, dispute.Status)
	require.NotNil(t, dispute.AssignedTo)
	assert.Equal(t, idle, *dispute.AssignedTo)
	assert.Equal(t, enums.ModeratorLevelSenior, dispute.ModeratorLevel)

	assert.Equal(t, []enums.DisputeActionType{enums.ActionCreated, enums.ActionAssigned}, repo.actionTypes(dispute.ID))
	assert.Equal(t, []enums.OutboxEventType{enums.EventDisputeAssigned, enums.EventDisputeCreated}, publisher.eventTypes())
}

func TestCreateWithoutEligibleModeratorStaysOpen(t *testing.T) {
	svc, repo, registry, _ := newTestService(t)
	// only a senior moderator registered, dispute needs ADMIN
	registry.addModerator(enums.ModeratorLevelSenior, 0)

	input := validCreateInput()
	input.Severity = enums.DisputeSeverityCritical
	dispute, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, enums.DisputeStatusOpen, dispute.Status)
	assert.Nil(t, dispute.AssignedTo)
	assert.Equal(t, enums.ModeratorLevelAdmin, dispute.ModeratorLevel)
	assert.Equal(t, []enums.DisputeActionType{enums.ActionCreated}, repo.actionTypes(dispute.ID))
}

func TestCreateRejectsDuplicateActive(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	input := validCreateInput()
	orderID := uuid.New()
	input.OrderID = &orderID
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), input)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
	assert.Len(t, repo.disputes, 1)
}

func TestAssignRequiresSufficientLevel(t *testing.T) {
	svc, repo, registry, _ := newTestService(t)
	dispute := seedDispute(repo, enums.DisputeStatusOpen, enums.DisputeSeverityCritical, nil)
	community := registry.addModerator(enums.ModeratorLevelCommunity, 0)

	_, err := svc.Assign(context.Background(), AssignDisputeInput{
		DisputeID:   dispute.ID,
		ModeratorID: community,
		AssignedBy:  uuid.New(),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	stored := repo.disputes[dispute.ID]
	assert.Equal(t, enums.DisputeStatusOpen, stored.Status)
	assert.Nil(t, stored.AssignedTo)
}

func TestAssignUnknownModerator(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	dispute := seedDispute(repo, enums.DisputeStatusOpen, enums.DisputeSeverityLow, nil)

	_, err := svc.Assign(context.Background(), AssignDisputeInput{
		DisputeID:   dispute.ID,
		ModeratorID: uuid.New(),
		AssignedBy:  uuid.New(),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestAssignWrongStatus(t *testing.T) {
	svc, repo, registry, _ := newTestService(t)
	dispute := seedDispute(repo, enums.DisputeStatusResolved, enums.DisputeSeverityLow, nil)
	moderator := registry.addModerator(enums.ModeratorLevelAdmin, 0)

	_, err := svc.Assign(context.Background(), AssignDisputeInput{
		DisputeID:   dispute.ID,
		ModeratorID: moderator,
		AssignedBy:  uuid.New(),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestAssignSucceeds(t *testing.T) {
	svc, repo, registry, publisher := newTestService(t)
	dispute := seedDispute(repo, enums.DisputeStatusOpen, enums.DisputeSeverityHigh, nil)
	moderator := registry.addModerator(enums.ModeratorLevelAdmin, 0)
	assigner := uuid.New()

	updated, err := svc.Assign(context.Background(), AssignDisputeInput{
		DisputeID:   dispute.ID,
		ModeratorID: moderator,
		AssignedBy:  assigner,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.DisputeStatusUnderReview, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, moderator, *updated.AssignedTo)
	assert.Equal(t, []enums.OutboxEventType{enums.EventDisputeAssigned}, publisher.eventTypes())
}

func TestAddEvidenceOnClosedDispute(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	dispute := seedDispute(repo, enums.DisputeStatusClosed, enums.DisputeSeverityLow, nil)

	_, err := svc.AddEvidence(context.Background(), AddEvidenceInput{
		DisputeID:  dispute.ID,
		UploaderID: uuid.New(),
		Type:       enums.EvidenceTypeScreenshot,
		URL:        "https://cdn.example.com/shot.png",
	})

	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeClosed))
	assert.Empty(t, repo.evidence)
}

func TestAddEvidenceAndCommentWhileActive(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	dispute := seedDispute(repo, enums.DisputeStatusUnderReview, enums.DisputeSeverityLow, nil)

	evidence, err := svc.AddEvidence(context.Background(), AddEvidenceInput{
		DisputeID:  dispute.ID,
		UploaderID: uuid.New(),
		Type:       enums.EvidenceTypeChatLog,
		URL:        "https://cdn.example.com/chat.txt",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, evidence.ID)

	comment, err := svc.AddComment(context.Background(), AddCommentInput{
		DisputeID: dispute.ID,
		AuthorID:  uuid.New(),
		Body:      "buyer confirmed tracking number is bogus",
		Internal:  true,
	})
	require.NoError(t, err)
	assert.True(t, comment.Internal)

	assert.Equal(t, []enums.DisputeActionType{enums.ActionEvidenceAdded, enums.ActionCommentAdded}, repo.actionTypes(dispute.ID))
}

func TestEscalateRaisesLevelAndReassigns(t *testing.T) {
	svc, repo, registry, publisher := newTestService(t)
	previous := uuid.New()
	dispute := seedDispute(repo, enums.DisputeStatusUnderReview, enums.DisputeSeverityHigh, &previous)
	admin := registry.addModerator(enums.ModeratorLevelAdmin, 0)

	updated, err := svc.Escalate(context.Background(), EscalateInput{
		DisputeID:   dispute.ID,
		EscalatedBy: previous,
		Reason:      "needs an admin decision",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.DisputeStatusEscalated, updated.Status)
	assert.Equal(t, enums.ModeratorLevelAdmin, updated.ModeratorLevel)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, admin, *updated.AssignedTo)

	types := publisher.eventTypes()
	assert.Contains(t, types, enums.EventDisputeEscalated)
	assert.Contains(t, types, enums.EventDisputeAssigned)
}

func TestEscalateKeepsEscalatedStatusWhenUnassignable(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	previous := uuid.New()
	dispute := seedDispute(repo, enums.DisputeStatusUnderReview, enums.DisputeSeverityHigh, &previous)

	updated, err := svc.Escalate(context.Background(), EscalateInput{
		DisputeID:   dispute.ID,
		EscalatedBy: previous,
		Reason:      "no admins around",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.DisputeStatusEscalated, updated.Status)
	assert.Nil(t, updated.AssignedTo)
}

func TestEscalateAtHighestLevel(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	assignee := uuid.New()
	dispute := seedDispute(repo, enums.DisputeStatusUnderReview, enums.DisputeSeverityCritical, &assignee)

	_, err := svc.Escalate(context.Background(), EscalateInput{
		DisputeID:   dispute.ID,
		EscalatedBy: assignee,
	})

	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Contains(t, err.Error(), "already at highest level")
}

func TestEscalateWrongStatus(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	dispute := seedDispute(repo, enums.DisputeStatusOpen, enums.DisputeSeverityLow, nil)

	_, err := svc.Escalate(context.Background(), EscalateInput{
		DisputeID:   dispute.ID,
		EscalatedBy: uuid.New(),
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestVoteRequiresEscalatedDispute(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	dispute := seedDispute(repo, enums.DisputeStatusUnderReview, enums.DisputeSeverityHigh, nil)

	_, err := svc.Vote(context.Background(), VoteInput{
		DisputeID: dispute.ID,
		VoterID:   uuid.New(),
		Approved:  true,
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestVoteRejectsDuplicateVoter(t *testing.T) {
	svc, repo, registry, _ := newTestService(t)
	assignee := uuid.New()
	dispute := seedDispute(repo, enums.DisputeStatusEscalated, enums.DisputeSeverityHigh, &assignee)
	voter := registry.addModerator(enums.ModeratorLevelSenior, 0)

	_, err := svc.Vote(context.Background(), VoteInput{DisputeID: dispute.ID, VoterID: voter, Approved: true})
	require.NoError(t, err)

	_, err = svc.Vote(context.Background(), VoteInput{DisputeID: dispute.ID, VoterID: voter, Approved: false})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestVoteQuorumAutoResolves(t *testing.T) {
	svc, repo, registry, publisher := newTestService(t)
	assignee := registry.addModerator(enums.ModeratorLevelAdmin, 0)
	dispute := seedDispute(repo, enums.DisputeStatusEscalated, enums.DisputeSeverityHigh, &assignee)

	community := registry.addModerator(enums.ModeratorLevelCommunity, 0)
	senior := registry.addModerator(enums.ModeratorLevelSenior, 0)
	adminAgainst := registry.addModerator(enums.ModeratorLevelAdmin, 0)
	adminFor := registry.addModerator(enums.ModeratorLevelAdmin, 0)

	ctx := context.Background()
	_, err := svc.Vote(ctx, VoteInput{DisputeID: dispute.ID, VoterID: community, Approved: true})
	require.NoError(t, err)
	_, err = svc.Vote(ctx, VoteInput{DisputeID: dispute.ID, VoterID: senior, Approved: true})
	require.NoError(t, err)
	_, err = svc.Vote(ctx, VoteInput{DisputeID: dispute.ID, VoterID: adminAgainst, Approved: false})
	require.NoError(t, err)

	// 3/6 = 50%, below threshold
	assert.Equal(t, enums.DisputeStatusEscalated, repo.disputes[dispute.ID].Status)

	// 6/9 ≈ 66.7% crosses the threshold
	_, err = svc.Vote(ctx, VoteInput{DisputeID: dispute.ID, VoterID: adminFor, Approved: true})
	require.NoError(t, err)

	stored := repo.disputes[dispute.ID]
	assert.Equal(t, enums.DisputeStatusResolved, stored.Status)
	require.NotNil(t, stored.ResolutionType)
	assert.Equal(t, enums.ResolutionTypeApproved, *stored.ResolutionType)
	require.NotNil(t, stored.ResolvedBy)
	assert.Equal(t, assignee, *stored.ResolvedBy)
	require.NotNil(t, stored.ResolutionNotes)
	assert.Contains(t, *stored.ResolutionNotes, "votes=4")

	// the assigned moderator earned the reward
	stats, err := registry.FindByID(ctx, assignee)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DisputesResolved)
	assert.Equal(t, PointsFor(enums.DisputeSeverityHigh), stats.Points)
	assert.False(t, stats.TotalEarned.IsZero())

	types := publisher.eventTypes()
	assert.Contains(t, types, enums.EventDisputeResolved)
	assert.Contains(t, types, enums.EventModeratorRewardRecorded)
}

func TestVoteQuorumOnUnassignedDisputeStaysEscalated(t *testing.T) {
	svc, repo, registry, publisher := newTestService(t)
	dispute := seedDispute(repo, enums.DisputeStatusEscalated, enums.DisputeSeverityHigh, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		voter := registry.addModerator(enums.ModeratorLevelAdmin, 0)
		_, err := svc.Vote(ctx, VoteInput{DisputeID: dispute.ID, VoterID: voter, Approved: true})
		require.NoError(t, err)
	}

	// unanimous approval, but resolution waits for an assignee
	stored := repo.disputes[dispute.ID]
	assert.Equal(t, enums.DisputeStatusEscalated, stored.Status)
	assert.Nil(t, stored.ResolvedBy)
	assert.Nil(t, stored.ResolvedAt)

	types := publisher.eventTypes()
	assert.NotContains(t, types, enums.EventDisputeResolved)
	assert.NotContains(t, types, enums.EventModeratorRewardRecorded)
}

func TestVoteWeightCapturedAtVoteTime(t *testing.T) {
	svc, repo, registry, _ := newTestService(t)
	assignee := uuid.New()
	dispute := seedDispute(repo, enums.DisputeStatusEscalated, enums.DisputeSeverityHigh, &assignee)
	senior := registry.addModerator(enums.ModeratorLevelSenior, 0)

	vote, err := svc.Vote(context.Background(), VoteInput{DisputeID: dispute.ID, VoterID: senior, Approved: true})
	require.NoError(t, err)
	assert.Equal(t, 2, vote.Weight)
}

func TestResolveByUnassignedModerator(t *testing.T) {
	svc, repo, registry, _ := newTestService(t)
	assignee := registry.addModerator(enums.ModeratorLevelSenior, 0)
	outsider := registry.addModerator(enums.ModeratorLevelSenior, 0)
	dispute := seedDispute(repo, enums.DisputeStatusUnderReview, enums.DisputeSeverityHigh, &assignee)

	_, err := svc.Resolve(context.Background(), ResolveInput{
		DisputeID:      dispute.ID,
		ModeratorID:    outsider,
		Resolution:     "refund the buyer",
		ResolutionType: enums.ResolutionTypeRefunded,
	})

	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	assert.Equal(t, enums.DisputeStatusUnderReview, repo.disputes[dispute.ID].Status)
}

func TestResolveComputesReward(t *testing.T) {
	svc, repo, registry, publisher := newTestService(t)
	assignee := registry.addModerator(enums.ModeratorLevelSenior, 0)
	// created 10 hours ago: inside the fast-resolution window
	dispute := seedDispute(repo, enums.DisputeStatusUnderReview, enums.DisputeSeverityHigh, &assignee)

	updated, err := svc.Resolve(context.Background(), ResolveInput{
		DisputeID:      dispute.ID,
		ModeratorID:    assignee,
		Resolution:     "refund the buyer",
		ResolutionType: enums.ResolutionTypeRefunded,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.DisputeStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	assert.False(t, updated.ResolvedAt.Before(updated.CreatedAt))

	stats, err := registry.FindByID(context.Background(), assignee)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DisputesResolved)
	assert.Equal(t, 30, stats.Points)
	assert.True(t, stats.TotalEarned.Equal(decimal.RequireFromString("0.27")), "total earned = %s", stats.TotalEarned)

	var reward *outbox.DomainEvent
	for i := range publisher.events {
		if publisher.events[i].EventType == enums.EventModeratorRewardRecorded {
			reward = &publisher.events[i]
		}
	}
	require.NotNil(t, reward)
}

func TestResolvePromotesAtThreshold(t *testing.T) {
	svc, repo, registry, publisher := newTestService(t)
	assignee := registry.addModerator(enums.ModeratorLevelCommunity, 0)
	registry.stats[assignee].DisputesResolved = 49
	registry.stats[assignee].Points = 490
	dispute := seedDispute(repo, enums.DisputeStatusUnderReview, enums.DisputeSeverityLow, &assignee)

	_, err := svc.Resolve(context.Background(), ResolveInput{
		DisputeID:      dispute.ID,
		ModeratorID:    assignee,
		Resolution:     "warning issued",
		ResolutionType: enums.ResolutionTypeWarning,
	})
	require.NoError(t, err)

	stats, err := registry.FindByID(context.Background(), assignee)
	require.NoError(t, err)
	assert.Equal(t, 50, stats.DisputesResolved)
	assert.Equal(t, 500, stats.Points)
	assert.Equal(t, enums.ModeratorLevelSenior, stats.Level)
	assert.Contains(t, publisher.eventTypes(), enums.EventModeratorLevelChanged)
}

func TestCloseRequiresResolved(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	dispute := seedDispute(repo, enums.DisputeStatusUnderReview, enums.DisputeSeverityLow, nil)

	_, err := svc.Close(context.Background(), CloseInput{DisputeID: dispute.ID, ClosedBy: uuid.New()})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestCloseResolvedDispute(t *testing.T) {
	svc, repo, _, publisher := newTestService(t)
	dispute := seedDispute(repo, enums.DisputeStatusResolved, enums.DisputeSeverityLow, nil)

	updated, err := svc.Close(context.Background(), CloseInput{DisputeID: dispute.ID, ClosedBy: uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, enums.DisputeStatusClosed, updated.Status)
	assert.NotNil(t, updated.ClosedAt)
	assert.Contains(t, publisher.eventTypes(), enums.EventDisputeClosed)

	// closed means frozen
	_, err = svc.AddComment(context.Background(), AddCommentInput{
		DisputeID: dispute.ID,
		AuthorID:  uuid.New(),
		Body:      "late remark",
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeClosed))
}

func TestStatisticsEmptyDataset(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	stats, err := svc.Statistics(context.Background(), StatsPeriod{})
	require.NoError(t, err)

	assert.Zero(t, stats.Total)
	assert.Nil(t, stats.AvgResolutionSeconds)
	assert.Zero(t, stats.ResolutionRate)
}

func TestStatisticsAggregates(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	resolved := seedDispute(repo, enums.DisputeStatusResolved, enums.DisputeSeverityHigh, nil)
	resolvedAt := resolved.CreatedAt.Add(2 * time.Hour)
	repo.disputes[resolved.ID].ResolvedAt = &resolvedAt
	seedDispute(repo, enums.DisputeStatusOpen, enums.DisputeSeverityLow, nil)

	stats, err := svc.Statistics(context.Background(), StatsPeriod{})
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.ResolvedCount)
	require.NotNil(t, stats.AvgResolutionSeconds)
	assert.InDelta(t, 7200, *stats.AvgResolutionSeconds, 0.5)
	assert.InDelta(t, 0.5, stats.ResolutionRate, 1e-9)
}

func TestGetReturnsFullDetail(t *testing.T) {
	svc, repo, registry, _ := newTestService(t)
	assignee := uuid.New()
	dispute := seedDispute(repo, enums.DisputeStatusEscalated, enums.DisputeSeverityHigh, &assignee)
	voter := registry.addModerator(enums.ModeratorLevelCommunity, 0)

	ctx := context.Background()
	_, err := svc.Vote(ctx, VoteInput{DisputeID: dispute.ID, VoterID: voter, Approved: true})
	require.NoError(t, err)

	detail, err := svc.Get(ctx, dispute.ID)
	require.NoError(t, err)
	assert.Equal(t, dispute.ID, detail.Dispute.ID)
	assert.Len(t, detail.Votes, 1)
	assert.NotEmpty(t, detail.Actions)
}

func TestGetUnknownDispute(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestStatusPathStaysLegal(t *testing.T) {
	svc, repo, registry, _ := newTestService(t)
	registry.addModerator(enums.ModeratorLevelSenior, 0)

	ctx := context.Background()
	dispute, err := svc.Create(ctx, validCreateInput())
	require.NoError(t, err)
	require.NotNil(t, dispute.AssignedTo)

	assignee := *dispute.AssignedTo
	_, err = svc.Resolve(ctx, ResolveInput{
		DisputeID:      dispute.ID,
		ModeratorID:    assignee,
		Resolution:     "dismissed after review",
		ResolutionType: enums.ResolutionTypeDismissed,
	})
	require.NoError(t, err)

	_, err = svc.Close(ctx, CloseInput{DisputeID: dispute.ID, ClosedBy: assignee})
	require.NoError(t, err)

	types := repo.actionTypes(dispute.ID)
	wantOrder := []enums.DisputeActionType{
		enums.ActionCreated,
		enums.ActionAssigned,
		enums.ActionResolved,
		enums.ActionClosed,
	}
	assert.Equal(t, wantOrder, types)

	var names []string
	for _, a := range types {
		names = append(names, string(a))
	}
	assert.Equal(t, "CREATED,ASSIGNED,RESOLVED,CLOSED", strings.Join(names, ","))
}

package disputes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veritasmarket/veritas-backend/internal/moderators"
	dbpkg "github.com/veritasmarket/veritas-backend/pkg/db"
	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	pkgerrors "github.com/veritasmarket/veritas-backend/pkg/errors"
	"github.com/veritasmarket/veritas-backend/pkg/logger"
	"github.com/veritasmarket/veritas-backend/pkg/metrics"
	"github.com/veritasmarket/veritas-backend/pkg/outbox"
	"github.com/veritasmarket/veritas-backend/pkg/outbox/payloads"
	"github.com/veritasmarket/veritas-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the dispute workflow state machine. Every mutating operation is
// one transaction: validate the transition, write the new state, append the
// action-log row, queue outbox events. Nothing is committed on failure.
type Service interface {
	Create(ctx context.Context, input CreateDisputeInput) (*models.Dispute, error)
	Get(ctx context.Context, disputeID uuid.UUID) (*DisputeDetail, error)
	List(ctx context.Context, filters ListFilters, page pagination.Page) (*ListResult, error)
	Assign(ctx context.Context, input AssignDisputeInput) (*models.Dispute, error)
	AddEvidence(ctx context.Context, input AddEvidenceInput) (*models.DisputeEvidence, error)
	AddComment(ctx context.Context, input AddCommentInput) (*models.DisputeComment, error)
	Escalate(ctx context.Context, input EscalateInput) (*models.Dispute, error)
	Vote(ctx context.Context, input VoteInput) (*models.DisputeVote, error)
	Resolve(ctx context.Context, input ResolveInput) (*models.Dispute, error)
	Close(ctx context.Context, input CloseInput) (*models.Dispute, error)
	Statistics(ctx context.Context, period StatsPeriod) (*Statistics, error)
}

type service struct {
	repo     Repository
	registry moderators.Repository
	tx       txRunner
	outbox   outboxPublisher
	metrics  *metrics.DisputeMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the dispute workflow service.
func NewService(repo Repository, registry moderators.Repository, tx txRunner, publisher outboxPublisher, disputeMetrics *metrics.DisputeMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if registry == nil {
		return nil, fmt.Errorf("moderators repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		registry: registry,
		tx:       tx,
		outbox:   publisher,
		metrics:  disputeMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateDisputeInput) (*models.Dispute, error) {
	if input.ReporterID == uuid.Nil || input.ReportedID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reporter and reported ids required")
	}
	if input.ReporterID == input.ReportedID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reporter and reported must differ")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute type")
	}
	if !input.Severity.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute severity")
	}
	if strings.TrimSpace(input.Subject) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}

	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindActiveDuplicate(ctx, input)
		if err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "an active dispute already exists for these parties").
				WithDetails(map[string]any{"dispute_id": existing.ID})
		}
		if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check duplicate dispute")
		}

		dispute = &models.Dispute{
			Type:           input.Type,
			Severity:       input.Severity,
			Status:         enums.DisputeStatusOpen,
			ReporterID:     input.ReporterID,
			ReportedID:     input.ReportedID,
			Subject:        input.Subject,
			Description:    input.Description,
			OrderID:        input.OrderID,
			CardID:         input.CardID,
			ProductID:      input.ProductID,
			ModeratorLevel: input.Severity.RequiredLevel(),
		}
		if _, err := repo.Create(ctx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist dispute")
		}

		if err := s.appendAction(ctx, repo, dispute.ID, input.ReporterID, enums.ActionCreated, map[string]any{
			"type":     dispute.Type,
			"severity": dispute.Severity,
			"level":    dispute.ModeratorLevel,
		}); err != nil {
			return err
		}

		// best effort: an unassignable dispute simply stays OPEN
		if err := s.autoAssign(ctx, tx, repo, dispute); err != nil {
			return err
		}

		event := payloads.DisputeCreatedEvent{
			DisputeID:  dispute.ID,
			Type:       dispute.Type,
			Severity:   dispute.Severity,
			ReporterID: dispute.ReporterID,
			ReportedID: dispute.ReportedID,
			Level:      dispute.ModeratorLevel,
			AssignedTo: dispute.AssignedTo,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeCreated,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Actor:         buildActor(input.ReporterID, enums.ActorRoleUser),
			Data:          event,
			Version:       1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCreated(dispute.Severity.String())
	return dispute, nil
}

// autoAssign selects the least-loaded eligible moderator and assigns the
// dispute to them. No eligible moderator is not an error. The conditional
// write keeps two racing assignments from both landing.
func (s *service) autoAssign(ctx context.Context, tx *gorm.DB, repo Repository, dispute *models.Dispute) error {
	candidates, err := s.registry.WithTx(tx).ListEligible(ctx, dispute.ModeratorLevel)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list eligible moderators")
	}
	moderatorID, ok := pickCandidate(candidates)
	if !ok {
		return nil
	}

	toStatus := dispute.Status
	if dispute.Status == enums.DisputeStatusOpen {
		toStatus = enums.DisputeStatusUnderReview
	}
	assigned, err := repo.TryAssign(ctx, dispute.ID, moderatorID, dispute.Status, toStatus)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign dispute")
	}
	if !assigned {
		s.metrics.IncAssignmentMiss()
		return nil
	}

	dispute.AssignedTo = &moderatorID
	dispute.Status = toStatus
	dispute.Version++

	if err := s.appendAction(ctx, repo, dispute.ID, moderatorID, enums.ActionAssigned, map[string]any{
		"moderator_id": moderatorID,
		"level":        dispute.ModeratorLevel,
	}); err != nil {
		return err
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDisputeAssigned,
		AggregateType: enums.AggregateDispute,
		AggregateID:   dispute.ID,
		Actor:         buildActor(moderatorID, enums.ActorRoleService),
		Data: payloads.DisputeAssignedEvent{
			DisputeID:   dispute.ID,
			ModeratorID: moderatorID,
			Level:       dispute.ModeratorLevel,
		},
		Version: 1,
	})
}

func (s *service) Get(ctx context.Context, disputeID uuid.UUID) (*DisputeDetail, error) {
	dispute, err := s.loadDispute(ctx, s.repo, disputeID)
	if err != nil {
		return nil, err
	}

	detail := &DisputeDetail{Dispute: *dispute}
	if detail.Evidence, err = s.repo.ListEvidence(ctx, disputeID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list evidence")
	}
	if detail.Comments, err = s.repo.ListComments(ctx, disputeID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}
	if detail.Votes, err = s.repo.ListVotes(ctx, disputeID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list votes")
	}
	if detail.Actions, err = s.repo.ListActions(ctx, disputeID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list actions")
	}
	return detail, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, page pagination.Page) (*ListResult, error) {
	page = page.Normalize()
	rows, total, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list disputes")
	}
	return &ListResult{Disputes: rows, Total: total, Page: page}, nil
}

func (s *service) Assign(ctx context.Context, input AssignDisputeInput) (*models.Dispute, error) {
	if input.DisputeID == uuid.Nil || input.ModeratorID == uuid.Nil || input.AssignedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute, moderator and assigner ids required")
	}

	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := s.loadDispute(ctx, repo, input.DisputeID)
		if err != nil {
			return err
		}
		dispute = loaded

		if dispute.Status != enums.DisputeStatusOpen && dispute.Status != enums.DisputeStatusUnderReview {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute cannot be assigned in its current status").
				WithDetails(map[string]any{"status": dispute.Status})
		}

		stats, err := s.registry.WithTx(tx).FindByID(ctx, input.ModeratorID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "moderator not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load moderator")
		}
		if !stats.Level.AtLeast(dispute.ModeratorLevel) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "moderator level below the dispute's required level")
		}

		ok, err := repo.UpdateChecked(ctx, dispute.ID, dispute.Version, map[string]any{
			"assigned_to": input.ModeratorID,
			"status":      enums.DisputeStatusUnderReview,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign dispute")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute was modified concurrently, retry")
		}
		dispute.AssignedTo = &input.ModeratorID
		dispute.Status = enums.DisputeStatusUnderReview
		dispute.Version++

		if err := s.appendAction(ctx, repo, dispute.ID, input.AssignedBy, enums.ActionAssigned, map[string]any{
			"moderator_id": input.ModeratorID,
			"assigned_by":  input.AssignedBy,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeAssigned,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Actor:         buildActor(input.AssignedBy, enums.ActorRoleModerator),
			Data: payloads.DisputeAssignedEvent{
				DisputeID:   dispute.ID,
				ModeratorID: input.ModeratorID,
				Level:       dispute.ModeratorLevel,
				AssignedBy:  &input.AssignedBy,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *service) AddEvidence(ctx context.Context, input AddEvidenceInput) (*models.DisputeEvidence, error) {
	if input.DisputeID == uuid.Nil || input.UploaderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute and uploader ids required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid evidence type")
	}
	if strings.TrimSpace(input.URL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "evidence url required")
	}

	var evidence *models.DisputeEvidence
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		dispute, err := s.loadDispute(ctx, repo, input.DisputeID)
		if err != nil {
			return err
		}
		if err := mutationAllowed(dispute); err != nil {
			return err
		}

		evidence = &models.DisputeEvidence{
			DisputeID:   input.DisputeID,
			UploaderID:  input.UploaderID,
			Type:        input.Type,
			URL:         input.URL,
			Description: input.Description,
			Metadata:    input.Metadata,
		}
		if _, err := repo.CreateEvidence(ctx, evidence); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist evidence")
		}
		return s.appendAction(ctx, repo, dispute.ID, input.UploaderID, enums.ActionEvidenceAdded, map[string]any{
			"evidence_id": evidence.ID,
			"type":        evidence.Type,
		})
	})
	if err != nil {
		return nil, err
	}
	return evidence, nil
}

func (s *service) AddComment(ctx context.Context, input AddCommentInput) (*models.DisputeComment, error) {
	if input.DisputeID == uuid.Nil || input.AuthorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute and author ids required")
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment body required")
	}

	var comment *models.DisputeComment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		dispute, err := s.loadDispute(ctx, repo, input.DisputeID)
		if err != nil {
			return err
		}
		if err := mutationAllowed(dispute); err != nil {
			return err
		}

		comment = &models.DisputeComment{
			DisputeID: input.DisputeID,
			AuthorID:  input.AuthorID,
			Body:      input.Body,
			Internal:  input.Internal,
		}
		if _, err := repo.CreateComment(ctx, comment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist comment")
		}
		return s.appendAction(ctx, repo, dispute.ID, input.AuthorID, enums.ActionCommentAdded, map[string]any{
			"comment_id": comment.ID,
			"internal":   comment.Internal,
		})
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *service) Escalate(ctx context.Context, input EscalateInput) (*models.Dispute, error) {
	if input.DisputeID == uuid.Nil || input.EscalatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute and escalator ids required")
	}

	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := s.loadDispute(ctx, repo, input.DisputeID)
		if err != nil {
			return err
		}
		dispute = loaded

		if dispute.Status != enums.DisputeStatusUnderReview {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only disputes under review can be escalated").
				WithDetails(map[string]any{"status": dispute.Status})
		}
		fromLevel := dispute.ModeratorLevel
		toLevel, ok := fromLevel.Next()
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "already at highest level")
		}

		updated, err := repo.UpdateChecked(ctx, dispute.ID, dispute.Version, map[string]any{
			"moderator_level": toLevel,
			"status":          enums.DisputeStatusEscalated,
			"assigned_to":     nil,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "escalate dispute")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute was modified concurrently, retry")
		}
		dispute.ModeratorLevel = toLevel
		dispute.Status = enums.DisputeStatusEscalated
		dispute.AssignedTo = nil
		dispute.Version++

		if err := s.appendAction(ctx, repo, dispute.ID, input.EscalatedBy, enums.ActionEscalated, map[string]any{
			"from_level": fromLevel,
			"to_level":   toLevel,
			"reason":     input.Reason,
		}); err != nil {
			return err
		}

		// reassign at the new level, still best effort
		if err := s.autoAssign(ctx, tx, repo, dispute); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeEscalated,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Actor:         buildActor(input.EscalatedBy, enums.ActorRoleModerator),
			Data: payloads.DisputeEscalatedEvent{
				DisputeID:  dispute.ID,
				FromLevel:  fromLevel,
				ToLevel:    toLevel,
				Reason:     input.Reason,
				AssignedTo: dispute.AssignedTo,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncEscalation()
	return dispute, nil
}

func (s *service) Vote(ctx context.Context, input VoteInput) (*models.DisputeVote, error) {
	if input.DisputeID == uuid.Nil || input.VoterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute and voter ids required")
	}

	var (
		vote     *models.DisputeVote
		resolved *resolutionOutcome
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		registry := s.registry.WithTx(tx)

		dispute, err := s.loadDispute(ctx, repo, input.DisputeID)
		if err != nil {
			return err
		}
		if dispute.Status != enums.DisputeStatusEscalated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "voting is only open on escalated disputes").
				WithDetails(map[string]any{"status": dispute.Status})
		}

		voter, err := registry.Ensure(ctx, input.VoterID, enums.ModeratorLevelCommunity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voter")
		}

		vote = &models.DisputeVote{
			DisputeID: input.DisputeID,
			VoterID:   input.VoterID,
			Approved:  input.Approved,
			Weight:    voter.Level.VoteWeight(),
			Rationale: input.Rationale,
		}
		if _, err := repo.CreateVote(ctx, vote); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_dispute_votes_dispute_voter") {
				return pkgerrors.New(pkgerrors.CodeConflict, "moderator already voted on this dispute")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist vote")
		}

		if err := s.appendAction(ctx, repo, dispute.ID, input.VoterID, enums.ActionVoteCast, map[string]any{
			"approved": vote.Approved,
			"weight":   vote.Weight,
		}); err != nil {
			return err
		}

		votes, err := repo.ListVotes(ctx, dispute.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "tally votes")
		}
		tally := TallyVotes(votes)
		if !tally.Approved() {
			return nil
		}

		// quorum resolves on behalf of the assigned moderator only; an
		// escalated dispute with no assignee stays ESCALATED until one lands
		if dispute.AssignedTo == nil {
			return nil
		}
		notes := fmt.Sprintf("auto-resolved by weighted vote: approval=%.2f votes=%d", tally.Ratio(), tally.Votes)
		outcome, err := s.finalizeResolution(ctx, tx, repo, dispute, resolutionInput{
			ModeratorID:    *dispute.AssignedTo,
			Resolution:     "Approved by weighted moderator vote",
			ResolutionType: enums.ResolutionTypeApproved,
			Notes:          &notes,
		})
		if err != nil {
			return err
		}
		resolved = outcome
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncVote()
	if resolved != nil {
		s.recordResolutionMetrics(resolved)
	}
	return vote, nil
}

func (s *service) Resolve(ctx context.Context, input ResolveInput) (*models.Dispute, error) {
	if input.DisputeID == uuid.Nil || input.ModeratorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute and moderator ids required")
	}
	if strings.TrimSpace(input.Resolution) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution required")
	}
	if !input.ResolutionType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid resolution type")
	}

	var (
		dispute  *models.Dispute
		resolved *resolutionOutcome
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := s.loadDispute(ctx, repo, input.DisputeID)
		if err != nil {
			return err
		}
		dispute = loaded

		if dispute.Status != enums.DisputeStatusUnderReview && dispute.Status != enums.DisputeStatusEscalated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute cannot be resolved in its current status").
				WithDetails(map[string]any{"status": dispute.Status})
		}
		if dispute.AssignedTo == nil || *dispute.AssignedTo != input.ModeratorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned moderator may resolve this dispute")
		}

		outcome, err := s.finalizeResolution(ctx, tx, repo, dispute, resolutionInput{
			ModeratorID:    input.ModeratorID,
			Resolution:     input.Resolution,
			ResolutionType: input.ResolutionType,
			Notes:          input.Notes,
			TxSignature:    input.TxSignature,
		})
		if err != nil {
			return err
		}
		resolved = outcome
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordResolutionMetrics(resolved)
	return dispute, nil
}

func (s *service) Close(ctx context.Context, input CloseInput) (*models.Dispute, error) {
	if input.DisputeID == uuid.Nil || input.ClosedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute and closer ids required")
	}

	var dispute *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		loaded, err := s.loadDispute(ctx, repo, input.DisputeID)
		if err != nil {
			return err
		}
		dispute = loaded

		if dispute.Status != enums.DisputeStatusResolved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only resolved disputes can be closed").
				WithDetails(map[string]any{"status": dispute.Status})
		}

		closedAt := s.now()
		ok, err := repo.UpdateChecked(ctx, dispute.ID, dispute.Version, map[string]any{
			"status":    enums.DisputeStatusClosed,
			"closed_at": closedAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close dispute")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute was modified concurrently, retry")
		}
		dispute.Status = enums.DisputeStatusClosed
		dispute.ClosedAt = &closedAt
		dispute.Version++

		if err := s.appendAction(ctx, repo, dispute.ID, input.ClosedBy, enums.ActionClosed, nil); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDisputeClosed,
			AggregateType: enums.AggregateDispute,
			AggregateID:   dispute.ID,
			Actor:         buildActor(input.ClosedBy, enums.ActorRoleModerator),
			Data: payloads.DisputeClosedEvent{
				DisputeID:  dispute.ID,
				ReporterID: dispute.ReporterID,
				ClosedBy:   input.ClosedBy,
				ClosedAt:   closedAt,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

func (s *service) Statistics(ctx context.Context, period StatsPeriod) (*Statistics, error) {
	byStatus, err := s.repo.CountByStatus(ctx, period)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count by status")
	}
	byType, err := s.repo.CountByType(ctx, period)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count by type")
	}
	bySeverity, err := s.repo.CountBySeverity(ctx, period)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count by severity")
	}
	durations, err := s.repo.ResolutionDurations(ctx, period)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolution durations")
	}

	stats := &Statistics{
		ByStatus:      byStatus,
		ByType:        byType,
		BySeverity:    bySeverity,
		ResolvedCount: int64(len(durations)),
	}
	for _, count := range byStatus {
		stats.Total += count
	}
	if len(durations) > 0 {
		var sum float64
		for _, seconds := range durations {
			sum += seconds
		}
		avg := sum / float64(len(durations))
		stats.AvgResolutionSeconds = &avg
	}
	if stats.Total > 0 {
		stats.ResolutionRate = float64(stats.ResolvedCount) / float64(stats.Total)
	}
	return stats, nil
}

type resolutionInput struct {
	ModeratorID    uuid.UUID
	Resolution     string
	ResolutionType enums.ResolutionType
	Notes          *string
	TxSignature    *string
}

type resolutionOutcome struct {
	ResolutionType enums.ResolutionType
	Elapsed        time.Duration
}

// finalizeResolution performs the shared RESOLVED transition: conditional
// status write, reward accrual, level-up check, action log, outbox events.
// Runs inside the caller's transaction.
func (s *service) finalizeResolution(ctx context.Context, tx *gorm.DB, repo Repository, dispute *models.Dispute, input resolutionInput) (*resolutionOutcome, error) {
	resolvedAt := s.now()
	if resolvedAt.Before(dispute.CreatedAt) {
		resolvedAt = dispute.CreatedAt
	}

	ok, err := repo.UpdateChecked(ctx, dispute.ID, dispute.Version, map[string]any{
		"status":           enums.DisputeStatusResolved,
		"resolution":       input.Resolution,
		"resolution_type":  input.ResolutionType,
		"resolution_notes": input.Notes,
		"resolved_by":      input.ModeratorID,
		"resolved_at":      resolvedAt,
		"tx_signature":     input.TxSignature,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve dispute")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "dispute was modified concurrently, retry")
	}
	dispute.Status = enums.DisputeStatusResolved
	dispute.Resolution = &input.Resolution
	dispute.ResolutionType = &input.ResolutionType
	dispute.ResolutionNotes = input.Notes
	dispute.ResolvedBy = &input.ModeratorID
	dispute.ResolvedAt = &resolvedAt
	dispute.TxSignature = input.TxSignature
	dispute.Version++

	registry := s.registry.WithTx(tx)
	resolver, err := registry.Ensure(ctx, input.ModeratorID, enums.ModeratorLevelCommunity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load resolver")
	}

	fast := IsFastResolution(dispute.CreatedAt, resolvedAt)
	amount := RewardAmount(resolver.Level, dispute.Severity, fast)
	points := PointsFor(dispute.Severity)
	if err := registry.ApplyReward(ctx, input.ModeratorID, amount, points); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply reward")
	}

	if err := s.appendAction(ctx, repo, dispute.ID, input.ModeratorID, enums.ActionResolved, map[string]any{
		"resolution_type": input.ResolutionType,
		"reward":          amount,
		"points":          points,
	}); err != nil {
		return nil, err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDisputeResolved,
		AggregateType: enums.AggregateDispute,
		AggregateID:   dispute.ID,
		Actor:         buildActor(input.ModeratorID, enums.ActorRoleModerator),
		Data: payloads.DisputeResolvedEvent{
			DisputeID:      dispute.ID,
			ReporterID:     dispute.ReporterID,
			ReportedID:     dispute.ReportedID,
			ResolvedBy:     input.ModeratorID,
			ResolutionType: input.ResolutionType,
			Severity:       dispute.Severity,
			ResolvedAt:     resolvedAt,
		},
		Version: 1,
	}); err != nil {
		return nil, err
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventModeratorRewardRecorded,
		AggregateType: enums.AggregateModerator,
		AggregateID:   input.ModeratorID,
		Actor:         buildActor(input.ModeratorID, enums.ActorRoleModerator),
		Data: payloads.ModeratorRewardRecordedEvent{
			ModeratorID: input.ModeratorID,
			DisputeID:   dispute.ID,
			Amount:      amount,
			Points:      points,
			Severity:    dispute.Severity,
			Level:       resolver.Level,
			FastBonus:   fast,
		},
		Version: 1,
	}); err != nil {
		return nil, err
	}

	if err := s.maybePromote(ctx, tx, registry, input.ModeratorID); err != nil {
		return nil, err
	}

	return &resolutionOutcome{
		ResolutionType: input.ResolutionType,
		Elapsed:        resolvedAt.Sub(dispute.CreatedAt),
	}, nil
}

// maybePromote re-reads the resolver's stats after the reward landed and
// applies a one-step promotion when the thresholds are met.
func (s *service) maybePromote(ctx context.Context, tx *gorm.DB, registry moderators.Repository, moderatorID uuid.UUID) error {
	stats, err := registry.FindByID(ctx, moderatorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload moderator stats")
	}
	next, eligible := moderators.PromotionFor(stats)
	if !eligible {
		return nil
	}
	promoted, err := registry.Promote(ctx, moderatorID, stats.Level, next)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote moderator")
	}
	if !promoted {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventModeratorLevelChanged,
		AggregateType: enums.AggregateModerator,
		AggregateID:   moderatorID,
		Actor:         buildActor(moderatorID, enums.ActorRoleService),
		Data: payloads.ModeratorLevelChangedEvent{
			ModeratorID: moderatorID,
			FromLevel:   stats.Level,
			ToLevel:     next,
		},
		Version: 1,
	})
}

func (s *service) loadDispute(ctx context.Context, repo Repository, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, err := repo.FindByID(ctx, disputeID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
	}
	return dispute, nil
}

func (s *service) appendAction(ctx context.Context, repo Repository, disputeID, actorID uuid.UUID, actionType enums.DisputeActionType, detail map[string]any) error {
	action := &models.DisputeAction{
		DisputeID: disputeID,
		ActorID:   actorID,
		Type:      actionType,
	}
	if detail != nil {
		payload, err := json.Marshal(detail)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode action detail")
		}
		action.Detail = payload
	}
	if err := repo.AppendAction(ctx, action); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append action")
	}
	return nil
}

func (s *service) recordResolutionMetrics(outcome *resolutionOutcome) {
	if outcome == nil {
		return
	}
	s.metrics.IncResolved(outcome.ResolutionType.String())
	s.metrics.ObserveResolutionTime(outcome.Elapsed)
}

// mutationAllowed gates append operations: resolved and terminal disputes are
// frozen.
func mutationAllowed(dispute *models.Dispute) error {
	if dispute.Status == enums.DisputeStatusResolved || dispute.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeClosed, "dispute is no longer open for changes").
			WithDetails(map[string]any{"status": dispute.Status})
	}
	return nil
}

func buildActor(userID uuid.UUID, role enums.ActorRole) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: userID, Role: role.String()}
}

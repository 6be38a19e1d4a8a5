package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veritasmarket/veritas-backend/api/middleware"
	"github.com/veritasmarket/veritas-backend/api/responses"
	"github.com/veritasmarket/veritas-backend/api/validators"
	"github.com/veritasmarket/veritas-backend/internal/disputes"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	pkgerrors "github.com/veritasmarket/veritas-backend/pkg/errors"
	"github.com/veritasmarket/veritas-backend/pkg/logger"
	"github.com/veritasmarket/veritas-backend/pkg/pagination"
)

const (
	maxSubjectLen     = 200
	maxDescriptionLen = 5000
	maxCommentLen     = 5000
	maxReasonLen      = 1000
)

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid identity")
	}
	return id, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

type createDisputeRequest struct {
	ReportedID  string  `json:"reported_id" validate:"required,uuid"`
	Type        string  `json:"type" validate:"required"`
	Severity    string  `json:"severity" validate:"required"`
	Subject     string  `json:"subject" validate:"required"`
	Description string  `json:"description" validate:"required"`
	OrderID     *string `json:"order_id,omitempty" validate:"omitempty,uuid"`
	CardID      *string `json:"card_id,omitempty" validate:"omitempty,uuid"`
	ProductID   *string `json:"product_id,omitempty" validate:"omitempty,uuid"`
}

// CreateDispute files a new dispute on behalf of the authenticated reporter.
func CreateDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		reporter, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		disputeType, err := enums.ParseDisputeType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute type"))
			return
		}
		severity, err := enums.ParseDisputeSeverity(req.Severity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid severity"))
			return
		}

		input := disputes.CreateDisputeInput{
			ReporterID:  reporter,
			ReportedID:  uuid.MustParse(req.ReportedID),
			Type:        disputeType,
			Severity:    severity,
			Subject:     validators.SanitizeString(req.Subject, maxSubjectLen),
			Description: validators.SanitizeString(req.Description, maxDescriptionLen),
		}
		if req.OrderID != nil {
			id := uuid.MustParse(*req.OrderID)
			input.OrderID = &id
		}
		if req.CardID != nil {
			id := uuid.MustParse(*req.CardID)
			input.CardID = &id
		}
		if req.ProductID != nil {
			id := uuid.MustParse(*req.ProductID)
			input.ProductID = &id
		}

		dispute, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dispute)
	}
}

// ListDisputes returns a filtered, paginated dispute listing.
func ListDisputes(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		filters, err := parseListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), filters, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetDispute returns the full read model for a single dispute.
func GetDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), disputeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type assignDisputeRequest struct {
	ModeratorID string `json:"moderator_id" validate:"required,uuid"`
}

// AssignDispute hands a dispute to a specific moderator.
func AssignDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Assign(r.Context(), disputes.AssignDisputeInput{
			DisputeID:   disputeID,
			ModeratorID: uuid.MustParse(req.ModeratorID),
			AssignedBy:  actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}

type addEvidenceRequest struct {
	Type        string          `json:"type" validate:"required"`
	URL         string          `json:"url" validate:"required"`
	Description *string         `json:"description,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// AddEvidence attaches an evidence record to an active dispute.
func AddEvidence(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req addEvidenceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		evidenceType, err := enums.ParseEvidenceType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid evidence type"))
			return
		}

		evidence, err := svc.AddEvidence(r.Context(), disputes.AddEvidenceInput{
			DisputeID:   disputeID,
			UploaderID:  actor,
			Type:        evidenceType,
			URL:         strings.TrimSpace(req.URL),
			Description: req.Description,
			Metadata:    req.Metadata,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, evidence)
	}
}

type addCommentRequest struct {
	Body     string `json:"body" validate:"required"`
	Internal bool   `json:"internal"`
}

// AddComment appends a comment to a dispute thread.
func AddComment(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req addCommentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		comment, err := svc.AddComment(r.Context(), disputes.AddCommentInput{
			DisputeID: disputeID,
			AuthorID:  actor,
			Body:      validators.SanitizeString(req.Body, maxCommentLen),
			Internal:  req.Internal,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, comment)
	}
}

type escalateRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// EscalateDispute raises the dispute's required moderator level.
func EscalateDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req escalateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Escalate(r.Context(), disputes.EscalateInput{
			DisputeID:   disputeID,
			EscalatedBy: actor,
			Reason:      validators.SanitizeString(req.Reason, maxReasonLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}

type voteRequest struct {
	Approved  *bool   `json:"approved" validate:"required"`
	Rationale *string `json:"rationale,omitempty"`
}

// VoteOnDispute records the authenticated moderator's vote.
func VoteOnDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req voteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vote, err := svc.Vote(r.Context(), disputes.VoteInput{
			DisputeID: disputeID,
			VoterID:   actor,
			Approved:  *req.Approved,
			Rationale: req.Rationale,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, vote)
	}
}

type resolveRequest struct {
	Resolution     string  `json:"resolution" validate:"required"`
	ResolutionType string  `json:"resolution_type" validate:"required"`
	Notes          *string `json:"notes,omitempty"`
	TxSignature    *string `json:"tx_signature,omitempty"`
}

// ResolveDispute finalizes a dispute with the moderator's decision.
func ResolveDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req resolveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolutionType, err := enums.ParseResolutionType(req.ResolutionType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid resolution type"))
			return
		}

		dispute, err := svc.Resolve(r.Context(), disputes.ResolveInput{
			DisputeID:      disputeID,
			ModeratorID:    actor,
			Resolution:     validators.SanitizeString(req.Resolution, maxDescriptionLen),
			ResolutionType: resolutionType,
			Notes:          req.Notes,
			TxSignature:    req.TxSignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}

// CloseDispute archives a resolved dispute.
func CloseDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		disputeID, err := parseUUIDParam(r, "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Close(r.Context(), disputes.CloseInput{
			DisputeID: disputeID,
			ClosedBy:  actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dispute)
	}
}

// DisputeStats aggregates dispute counts and resolution metrics over a period.
func DisputeStats(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		period, err := parseStatsPeriod(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Statistics(r.Context(), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// ModeratorQueue lists the disputes currently assigned to a moderator.
func ModeratorQueue(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "disputes service unavailable"))
			return
		}

		moderatorID, err := parseUUIDParam(r, "moderatorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := disputes.ListFilters{AssignedTo: &moderatorID}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseDisputeStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filters.Status = &status
		}

		result, err := svc.List(r.Context(), filters, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseListFilters(r *http.Request) (disputes.ListFilters, error) {
	var filters disputes.ListFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseDisputeStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		disputeType, err := enums.ParseDisputeType(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type")
		}
		filters.Type = &disputeType
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("severity")); raw != "" {
		severity, err := enums.ParseDisputeSeverity(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid severity")
		}
		filters.Severity = &severity
	}
	for param, dest := range map[string]**uuid.UUID{
		"assignedTo": &filters.AssignedTo,
		"reporterId": &filters.ReporterID,
		"reportedId": &filters.ReportedID,
	} {
		raw := strings.TrimSpace(r.URL.Query().Get(param))
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param).WithDetails(map[string]any{"field": param})
		}
		*dest = &id
	}
	return filters, nil
}

func parsePage(r *http.Request) (pagination.Page, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Page{}, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
	if err != nil {
		return pagination.Page{}, err
	}
	return pagination.Page{Limit: limit, Offset: offset}, nil
}

func parseStatsPeriod(r *http.Request) (disputes.StatsPeriod, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("period")))
	now := time.Now().UTC()

	switch raw {
	case "", "all":
		return disputes.StatsPeriod{}, nil
	case "today":
		since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return disputes.StatsPeriod{Since: &since}, nil
	case "week":
		since := now.AddDate(0, 0, -7)
		return disputes.StatsPeriod{Since: &since}, nil
	case "month":
		since := now.AddDate(0, -1, 0)
		return disputes.StatsPeriod{Since: &since}, nil
	case "year":
		since := now.AddDate(-1, 0, 0)
		return disputes.StatsPeriod{Since: &since}, nil
	}
	return disputes.StatsPeriod{}, pkgerrors.New(pkgerrors.CodeValidation, "period must be one of today, week, month, year, all")
}

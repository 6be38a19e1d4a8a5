package controllers

import (
	"net/http"

	"github.com/veritasmarket/veritas-backend/api/responses"
	"github.com/veritasmarket/veritas-backend/internal/moderators"
	pkgerrors "github.com/veritasmarket/veritas-backend/pkg/errors"
	"github.com/veritasmarket/veritas-backend/pkg/logger"
)

// ListModerators returns the roster with workload and reputation stats.
func ListModerators(svc moderators.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderators service unavailable"))
			return
		}

		roster, err := svc.ListModerators(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, roster)
	}
}

// GetModerator returns one moderator's stats record.
func GetModerator(svc moderators.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "moderators service unavailable"))
			return
		}

		moderatorID, err := parseUUIDParam(r, "moderatorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.GetStats(r.Context(), moderatorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veritasmarket/veritas-backend/api/controllers"
	"github.com/veritasmarket/veritas-backend/api/middleware"
	"github.com/veritasmarket/veritas-backend/internal/disputes"
	"github.com/veritasmarket/veritas-backend/internal/moderators"
	"github.com/veritasmarket/veritas-backend/internal/notifications"
	"github.com/veritasmarket/veritas-backend/pkg/config"
	"github.com/veritasmarket/veritas-backend/pkg/db"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	"github.com/veritasmarket/veritas-backend/pkg/logger"
	"github.com/veritasmarket/veritas-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	disputeService disputes.Service,
	moderatorService moderators.Service,
	notificationService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	submitPolicy := middleware.NewSubmitRateLimitPolicy(
		"dispute-submit",
		cfg.RateLimit.SubmitWindow,
		cfg.RateLimit.SubmitLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/disputes", func(r chi.Router) {
			r.With(middleware.SubmitRateLimit(submitPolicy, redisClient, logg)).
				Post("/", controllers.CreateDispute(disputeService, logg))
			r.Get("/", controllers.ListDisputes(disputeService, logg))
			r.Get("/stats", controllers.DisputeStats(disputeService, logg))
			r.Get("/{disputeId}", controllers.GetDispute(disputeService, logg))
			r.Post("/{disputeId}/evidence", controllers.AddEvidence(disputeService, logg))
			r.Post("/{disputeId}/comments", controllers.AddComment(disputeService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.ActorRoleModerator), logg))
				r.Post("/{disputeId}/assign", controllers.AssignDispute(disputeService, logg))
				r.Post("/{disputeId}/escalate", controllers.EscalateDispute(disputeService, logg))
				r.Post("/{disputeId}/vote", controllers.VoteOnDispute(disputeService, logg))
				r.Post("/{disputeId}/resolve", controllers.ResolveDispute(disputeService, logg))
				r.Post("/{disputeId}/close", controllers.CloseDispute(disputeService, logg))
			})

			r.With(middleware.RequireRole(string(enums.ActorRoleModerator), logg)).
				Get("/moderator/{moderatorId}", controllers.ModeratorQueue(disputeService, logg))
		})

		r.Route("/moderators", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleModerator), logg))
			r.Get("/", controllers.ListModerators(moderatorService, logg))
			r.Get("/{moderatorId}", controllers.GetModerator(moderatorService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationService, logg))
		})
	})

	return r
}

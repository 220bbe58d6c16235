package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/orro3790/drive-sub004/api/controllers"
	"github.com/orro3790/drive-sub004/api/middleware"
	"github.com/orro3790/drive-sub004/internal/bidding"
	"github.com/orro3790/drive-sub004/internal/health"
	"github.com/orro3790/drive-sub004/internal/lifecycle"
	"github.com/orro3790/drive-sub004/internal/notifications"
	"github.com/orro3790/drive-sub004/internal/preferences"
	"github.com/orro3790/drive-sub004/pkg/config"
	"github.com/orro3790/drive-sub004/pkg/db"
	"github.com/orro3790/drive-sub004/pkg/logger"
	"github.com/orro3790/drive-sub004/pkg/redis"
)

const roleManager = "manager"

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	lifecycleService lifecycle.Service,
	biddingService bidding.Service,
	preferencesService preferences.Service,
	healthService health.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
		middleware.Identity(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OrgContext(logg))

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/{assignmentId}/confirm", controllers.ConfirmAssignment(lifecycleService, logg))
			r.Post("/{assignmentId}/cancel", controllers.CancelAssignment(lifecycleService, logg))
			r.Post("/{assignmentId}/arrive", controllers.ArriveAssignment(lifecycleService, logg))
			r.Post("/{assignmentId}/start", controllers.StartShift(lifecycleService, logg))
			r.Post("/{assignmentId}/complete", controllers.CompleteShift(lifecycleService, logg))
			r.Post("/{assignmentId}/amend", controllers.AmendShift(lifecycleService, logg))
		})

		r.Route("/windows", func(r chi.Router) {
			r.Post("/{windowId}/bids", controllers.PlaceBid(biddingService, logg))
			r.Post("/{windowId}/claim", controllers.ClaimWindow(biddingService, logg))
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", controllers.GetPreferences(preferencesService, logg))
			r.Put("/", controllers.UpdatePreferences(preferencesService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/manager", func(r chi.Router) {
			r.Use(middleware.RequireRole(roleManager, logg))
			r.Post("/assignments/{assignmentId}/reassign", controllers.ReassignAssignment(lifecycleService, logg))
			r.Post("/assignments/{assignmentId}/window", controllers.ForceOpenWindow(biddingService, logg))
			r.Post("/drivers/{driverId}/reinstate", controllers.ReinstateDriver(healthService, logg))
		})
	})

	return r
}

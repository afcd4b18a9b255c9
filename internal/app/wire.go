package app

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/streamteamhq/platform/internal/audit"
	"github.com/streamteamhq/platform/internal/auth"
	"github.com/streamteamhq/platform/internal/guard"
	"github.com/streamteamhq/platform/internal/handler"
	adminhandler "github.com/streamteamhq/platform/internal/handler/admin"
	"github.com/streamteamhq/platform/internal/repository"
	"github.com/streamteamhq/platform/internal/service"
)

// Twitch is the upstream client used by the directory and the login flow.
type Twitch interface {
	service.TwitchAPI
	service.TwitchLogin
}

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	DB     repository.DBTX
	Tx     repository.Transactor
	Repos  repository.Repositories
	Health handler.Pinger
	JWTMgr *auth.JWTManager
	Twitch Twitch
	Audit  audit.Sink
	Logger *slog.Logger

	CORSOrigins   string
	SecureCookies bool
	SalveCooldown time.Duration
	// API rate limit per client IP on /api/*. Zero disables it.
	APIRateLimit  int
	APIRateWindow time.Duration
}

// Services are the services built by NewServices, exposed for background jobs.
type Services struct {
	Ledger    *service.LedgerService
	Feed      *service.FeedService
	Catalog   *service.CatalogService
	Directory *service.DirectoryService
	Sessions  *service.SessionService
}

// NewServices builds the service layer from deps.
func NewServices(deps RouterDeps) *Services {
	ledger := service.NewLedgerService(deps.DB, deps.Tx, deps.Repos, deps.SalveCooldown, deps.Logger)
	return &Services{
		Ledger:    ledger,
		Feed:      service.NewFeedService(deps.DB, deps.Tx, deps.Repos, deps.Logger),
		Catalog:   service.NewCatalogService(deps.DB, deps.Repos, deps.Audit, deps.Logger),
		Directory: service.NewDirectoryService(deps.DB, deps.Repos, ledger, deps.Twitch, deps.Logger),
		Sessions:  service.NewSessionService(deps.DB, deps.Repos, deps.Twitch, deps.JWTMgr, deps.Logger),
	}
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger
	svcs := NewServices(deps)

	// Handlers
	engagementHandler := handler.NewEngagementHandler(svcs.Ledger)
	notificationHandler := handler.NewNotificationHandler(svcs.Feed)
	directoryHandler := handler.NewDirectoryHandler(svcs.Directory)
	authHandler := handler.NewAuthHandler(svcs.Sessions, deps.SecureCookies, logger)

	// Admin handlers
	cardAdmin := adminhandler.NewCardAdminHandler(svcs.Catalog)
	questAdmin := adminhandler.NewQuestAdminHandler(svcs.Catalog)
	notificationAdmin := adminhandler.NewNotificationAdminHandler(svcs.Feed)
	streamerAdmin := adminhandler.NewStreamerAdminHandler(svcs.Catalog, logger)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSOrigins))
	r.Use(handler.JSONContentType)
	r.Use(auth.Identify(deps.JWTMgr))

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(deps.Health))

	// Identity provider
	r.Get("/auth/twitch", authHandler.Login)
	r.Get("/auth/twitch/callback", authHandler.Callback)
	r.Get("/logout", authHandler.Logout)

	r.Route("/api", func(r chi.Router) {
		if deps.APIRateLimit > 0 {
			r.Use(handler.APIRateLimit(guard.NewRateLimiter(deps.APIRateLimit, deps.APIRateWindow)))
		}

		// Public
		r.Post("/profile-click", engagementHandler.ProfileClick)
		r.Get("/profile-stats", engagementHandler.ProfileStats)
		r.Get("/notifications", notificationHandler.List)
		r.Get("/streamers", directoryHandler.Recent)
		r.Get("/search", directoryHandler.Search)
		r.Get("/streamer/{login}", directoryHandler.Profile)
		r.Get("/live", directoryHandler.Live)

		// Session required
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession)
			r.Get("/me", authHandler.Me)
			r.Post("/salve", engagementHandler.SendSalve)
			r.Post("/notifications/mark-read", notificationHandler.MarkRead)
		})

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(svcs.Catalog))

			r.Route("/cards", func(r chi.Router) {
				r.Get("/", cardAdmin.ListCards)
				r.Post("/", cardAdmin.CreateCard)
				r.Put("/{id}", cardAdmin.UpdateCard)
				r.Delete("/{id}", cardAdmin.DeleteCard)
			})

			r.Route("/quests", func(r chi.Router) {
				r.Get("/", questAdmin.ListQuests)
				r.Post("/", questAdmin.CreateQuest)
				r.Put("/{id}", questAdmin.UpdateQuest)
				r.Delete("/{id}", questAdmin.DeleteQuest)
			})

			r.Post("/notifications", notificationAdmin.Publish)

			r.Route("/streamers", func(r chi.Router) {
				r.Get("/", streamerAdmin.ListStreamers)
				r.Post("/{id}/toggle-admin", streamerAdmin.ToggleAdmin)
			})
		})
	})

	return r
}

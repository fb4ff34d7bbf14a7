package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/fleetboard/fleetboard/internal/auth"
	"github.com/fleetboard/fleetboard/internal/categories"
	"github.com/fleetboard/fleetboard/internal/discord"
	"github.com/fleetboard/fleetboard/internal/fleets"
	"github.com/fleetboard/fleetboard/internal/observability"
	"github.com/fleetboard/fleetboard/internal/pingformats"
	"github.com/fleetboard/fleetboard/internal/shared"
	"github.com/fleetboard/fleetboard/internal/users"
	"github.com/fleetboard/fleetboard/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	DiscordHandler     *discord.Handler
	CategoriesHandler  *categories.Handler
	FleetsHandler      *fleets.Handler
	PingFormatsHandler *pingformats.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with fleetboard defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			// Login endpoints get a tighter rate limit than the rest of
			// the API since they drive outbound Discord traffic.
			if params.Config != nil && params.Config.AuthRateLimit > 0 {
				ar.Use(httprate.LimitByIP(params.Config.AuthRateLimit, time.Minute))
			}
			if params.AuthHandler != nil {
				params.AuthHandler.MountRoutes(ar)
			}
		})

		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(api)
		}
		if params.DiscordHandler != nil {
			params.DiscordHandler.MountRoutes(api)
		}
		if params.CategoriesHandler != nil {
			params.CategoriesHandler.MountRoutes(api)
		}
		if params.FleetsHandler != nil {
			params.FleetsHandler.MountRoutes(api)
		}
		if params.PingFormatsHandler != nil {
			params.PingFormatsHandler.MountRoutes(api)
		}

		if params.JobHandler != nil {
			api.Route("/jobs", func(jr chi.Router) {
				params.JobHandler.MountRoutes(jr)
			})
		}
	})

	return r
}

// Package httpserver exposes the Slushbook JSON API handlers.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/slushbook/internal/geo"
	"github.com/and161185/slushbook/internal/service"
)

// Services bundles the application services the handlers call.
type Services struct {
	Auth        service.AuthService
	Recipes     service.RecipeService
	Ingredients service.IngredientService
	Users       service.UserService
	Transfer    service.TransferService
}

// Config holds the boundary settings.
type Config struct {
	CORSOrigins []string
	// RateLimitPerMinute bounds register and login attempts per client address; 0 disables it.
	RateLimitPerMinute int
}

// Server wires services into HTTP handlers.
type Server struct {
	svc Services
	geo geo.Locator
	cfg Config
	log *zap.Logger
}

// New constructs an HTTP server with injected services.
func New(svc Services, loc geo.Locator, cfg Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, geo: loc, cfg: cfg, log: log}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(s.log))
	r.Use(Recover(s.log))
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Accept-Language", "Authorization", "Content-Type", DeviceHeader},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.cfg.RateLimitPerMinute > 0 {
				r.Use(httprate.LimitByIP(s.cfg.RateLimitPerMinute, time.Minute))
			}
			r.Post("/auth/register", s.register)
			r.Post("/auth/login", s.login)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.svc.Auth))
			r.Use(Localize(s.geo))

			r.Get("/locale", s.locale)
			r.Get("/recipes", s.listRecipes)
			r.Get("/recipes/{id}", s.getRecipe)
			r.Get("/ingredients", s.listIngredients)
			r.Get("/ingredients/{id}", s.getIngredient)

			r.Group(func(r chi.Router) {
				r.Use(RequireAuth)

				r.Get("/me", s.me)

				r.Post("/recipes", s.createRecipe)
				r.Put("/recipes/{id}", s.updateRecipe)
				r.Delete("/recipes/{id}", s.deleteRecipe)
				r.Post("/recipes/{id}/{event}", s.transition)

				r.Post("/ingredients", s.createIngredient)
				r.Put("/ingredients/{id}", s.updateIngredient)
				r.Delete("/ingredients/{id}", s.deleteIngredient)

				r.Route("/admin", func(r chi.Router) {
					r.Patch("/recipes/{id}", s.adminPatchRecipe)
					r.Put("/users/{id}/role", s.setRole)
					r.Get("/export", s.exportRecipes)
					r.Post("/import", s.importRecipes)
				})
			})
		})
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) locale(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LocaleFromCtx(r.Context()))
}

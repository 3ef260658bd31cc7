package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/reelgen-api/internal/api"
	apiMiddleware "github.com/phrazzld/reelgen-api/internal/api/middleware"
	"github.com/phrazzld/reelgen-api/internal/domain"
)

// routes are the handlers mounted by newRouter.
type routes struct {
	auth          *apiMiddleware.AuthMiddleware
	scripts       *api.GenerationHandler[domain.Script]
	publishAssist *api.GenerationHandler[domain.PublishAssist]
	frames        *api.FramesHandler
	health        http.HandlerFunc
}

// setupRouter creates the application router from its dependencies.
func (app *application) setupRouter() http.Handler {
	health := api.HealthHandler(nil)
	if app.db != nil {
		health = api.HealthHandler(app.db)
	}
	return newRouter(app.logger, routes{
		auth:          apiMiddleware.NewAuthMiddleware(app.verifier),
		scripts:       api.NewGenerationHandler[domain.Script](app.scripts, app.emitter, app.logger),
		publishAssist: api.NewGenerationHandler[domain.PublishAssist](app.publishAssist, app.emitter, app.logger),
		frames:        api.NewFramesHandler(app.frameService, app.emitter, app.logger),
		health:        health,
	})
}

func newRouter(logger *slog.Logger, h routes) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(h.auth.Authenticate)

		r.Route("/tasks/{"+api.TaskIDParam+"}", func(r chi.Router) {
			r.Post("/script", h.scripts.Generate)
			r.Post("/script/regenerate", h.scripts.Regenerate)
			r.Get("/script/attempts", h.scripts.Attempts)

			r.Post("/publish-assist", h.publishAssist.Generate)
			r.Post("/publish-assist/regenerate", h.publishAssist.Regenerate)
			r.Get("/publish-assist/attempts", h.publishAssist.Attempts)

			r.Post("/frames/analyze", h.frames.Analyze)
			r.Get("/frames/recommendations", h.frames.Recommendations)
		})
	})

	r.Get("/health", h.health)

	return r
}

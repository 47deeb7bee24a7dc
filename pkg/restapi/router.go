// Package restapi exposes the gateway facade over HTTP: listing, starting,
// and stopping servers, invoking tools/resources/prompts on a running one,
// and resolving pending confirmations.
package restapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tinyland-inc/mcpgatewayd/pkg/gateway"
)

// NewRouter builds the full HTTP surface over gw.
func NewRouter(gw *gateway.Gateway) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := &handlers{gw: gw}

	r.Get("/health", h.health)

	r.Route("/servers", func(r chi.Router) {
		r.Get("/", h.listServers)
		r.Post("/", h.startServer)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", h.stopServer)
			r.Get("/tools", h.listTools)
			r.Post("/tools/{name}", h.callTool)
			r.Get("/resources", h.listResources)
			r.Get("/resources/*", h.readResource)
			r.Get("/prompts", h.listPrompts)
			r.Post("/prompts/{name}", h.getPrompt)
		})
	})

	r.Route("/confirmations", func(r chi.Router) {
		r.Get("/", h.listConfirmations)
		r.Post("/{cid}", h.resolveConfirmation)
	})

	return r
}

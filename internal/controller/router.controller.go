package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) corsMw() func(http.Handler) http.Handler {
	if c.allowAllOrigins() {
		return cors.AllowAll().Handler
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   c.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(c.corsMw())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Get("/ws", c.serveWS)
		r.Get("/rooms", c.listRooms)
		r.Get("/stream", c.getStream)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/guest", c.createGuest)
			r.Post("/logout", c.logout)
			r.Get("/session", c.getSession)
		})
	})

	return r
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/harshchoudhary100/my-chat-box/internal/metrics"
)

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func NewRouter(apiHandler *APIHandler, corsOrigin string) http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Public auth routes; logout reads its bearer token itself so it can
	// succeed without one.
	r.Post("/auth/signup", apiHandler.SignupHandler)
	r.Post("/auth/login", apiHandler.LoginHandler)
	r.Post("/auth/logout", apiHandler.LogoutHandler)

	// Token-protected routes
	r.Group(func(r chi.Router) {
		r.Use(apiHandler.JWTAuthMiddleware)

		r.Post("/session/create", apiHandler.CreateSessionHandler)
		r.Put("/session/rename/{sessionID}", apiHandler.RenameSessionHandler)
		r.Delete("/session/{sessionID}", apiHandler.DeleteSessionHandler)
		r.Get("/sessions", apiHandler.ListSessionsHandler)

		r.Post("/chat/{sessionID}", apiHandler.ChatHandler)
		r.Get("/history/{sessionID}", apiHandler.HistoryHandler)
	})

	return r
}

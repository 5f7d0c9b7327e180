// Package routes configures the HTTP router.
package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/rag-gateway/app"
	"github.com/upb/rag-gateway/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var sqlDB *sql.DB
	if deps.DB != nil {
		sqlDB = deps.DB.DB
	}

	var prober handlers.EncoderProber
	if deps.Encoder != nil {
		prober = deps.Encoder
	}

	chatHandler := handlers.NewChatHandler(deps.Chat, deps.Logger)
	searchHandler := handlers.NewSearchHandler(deps.Fragments, deps.Chat, deps.Logger)
	historyHandler := handlers.NewHistoryHandler(deps.History, deps.Logger)
	statsHandler := handlers.NewStatsHandler(deps.Fragments, deps.Logger)
	healthHandler := handlers.NewHealthHandler(sqlDB, prober, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		// Session cookie identifies the caller for chat history
		r.Use(deps.Session.EnsureSession)

		r.Post("/chat", chatHandler.HandleChat)
		r.Post("/search", searchHandler.HandleSearch)
		r.Post("/semantic-search", searchHandler.HandleSemanticSearch)
		r.Get("/history", historyHandler.HandleGetHistory)
		r.Post("/clear-history", historyHandler.HandleClearHistory)
		r.Get("/stats", statsHandler.HandleStats)
		r.Get("/health", healthHandler.HandleHealth)
		r.Get("/health/ready", healthHandler.HandleReadiness)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}

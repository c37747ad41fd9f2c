package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/premiumdental/dental-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/premiumdental/dental-ai-platform/internal/http/middleware"
	"github.com/premiumdental/dental-ai-platform/internal/webchat"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *handlers.ChatHandler
	WebchatHandler     *webchat.Handler
	AdminTranscripts   *handlers.AdminTranscriptsHandler
	MetricsHandler     http.Handler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
		}
		if cfg.ChatHandler != nil {
			public.Post("/api/chat", cfg.ChatHandler.ServeHTTP)
		}
		if cfg.WebchatHandler != nil {
			public.Get("/webchat/ws", cfg.WebchatHandler.HandleWebSocket)
			public.Post("/webchat/message", cfg.WebchatHandler.HandleMessage)
		}
	})

	// Admin endpoints behind JWT auth
	if cfg.AdminTranscripts != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/admin/transcripts/{conversationID}", cfg.AdminTranscripts.GetTranscript)
		})
	}

	return r
}

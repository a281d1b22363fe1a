package viewer

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/patient-records-viewer/internal/http/middleware"
	"github.com/wolfman30/patient-records-viewer/pkg/logging"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Handler            *Handler
	Logger             *logging.Logger
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// NewRouter creates a Chi router with all viewer routes configured.
func NewRouter(cfg *RouterConfig) http.Handler {
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

	h := cfg.Handler
	r.Get("/", h.Index)
	r.Get("/healthz", h.Health)
	r.Get("/ws", h.HandleWebSocket)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/patients", h.Patients)
		api.Post("/select", h.Select)
		api.Post("/deselect", h.Deselect)
		api.Get("/state", h.State)
		api.Post("/chat", h.Chat)
		api.Post("/summary/retry", h.RetrySummary)
		api.Route("/documents", func(docs chi.Router) {
			docs.Post("/open", h.OpenDocuments)
			docs.Post("/select", h.SelectDocument)
			docs.Post("/clear", h.ClearDocument)
		})
		api.Get("/profile/{name}", h.Profile)
		api.Get("/status", h.Status)
	})

	return r
}

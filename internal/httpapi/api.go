// Package httpapi exposes the service over a JSON HTTP API.
package httpapi

import (
	"careops/internal/core"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Handler wires the service into a chi router.
type Handler struct {
	svc    *core.Service
	logger *zap.Logger
}

// NewHandler constructs the API handler. A nil logger falls back to the
// no-op logger.
func NewHandler(svc *core.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes builds the API router. extra handlers (e.g. a metrics endpoint)
// are mounted at their given paths outside the /api prefix.
func (h *Handler) Routes(extra map[string]http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.getHealth)

		r.Route("/participants", func(r chi.Router) {
			r.Get("/", h.listParticipants)
			r.Post("/", h.createParticipant)
			r.Post("/commit", h.commitParticipant)
			r.Get("/{id}", h.getParticipant)
			r.Post("/{id}/commit", h.commitParticipant)
			r.Post("/{id}/archive", h.archiveParticipant)
			r.Post("/{id}/photo", h.setParticipantPhoto)
			r.Post("/{id}/documents", h.uploadParticipantDocument)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.listStaff)
			r.Post("/", h.createStaff)
			r.Post("/commit", h.commitStaff)
			r.Get("/{id}", h.getStaff)
			r.Post("/{id}/commit", h.commitStaff)
			r.Post("/{id}/archive", h.archiveStaff)
			r.Post("/{id}/documents", h.uploadStaffDocument)
		})

		r.Route("/houses", func(r chi.Router) {
			r.Get("/", h.listHouses)
			r.Post("/", h.createHouse)
			r.Post("/commit", h.commitHouse)
			r.Get("/{id}", h.getHouse)
			r.Post("/{id}/commit", h.commitHouse)
			r.Post("/{id}/archive", h.archiveHouse)
			r.Post("/{id}/documents", h.uploadHouseDocument)
			r.Post("/{id}/resources", h.uploadHouseResource)
		})

		r.Get("/documents/url", h.getDocumentURL)
		r.Get("/activity", h.getActivity)
	})

	for path, handler := range extra {
		r.Mount(path, handler)
	}
	return r
}

func (h *Handler) getHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

package httpapi

import (
	"careops/internal/core"
	blobcore "careops/internal/infra/blob/core"
	"careops/pkg/domain"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) uploadDocument(w http.ResponseWriter, r *http.Request, ownerType domain.EntityType) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	created, err := h.svc.UploadDocument(r.Context(), core.UploadInput{
		OwnerType:   ownerType,
		OwnerID:     chi.URLParam(r, "id"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		UserName:    r.FormValue("user"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getDocumentURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key query parameter is required")
		return
	}
	url, err := h.svc.DocumentURL(r.Context(), key, 15*time.Minute)
	if err != nil {
		if errors.Is(err, blobcore.ErrUnsupported) {
			writeError(w, http.StatusNotImplemented, "presigned URLs are not supported by the configured blob store")
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ActivityFilter{
		EntityType: domain.EntityType(q.Get("entity_type")),
		EntityID:   q.Get("entity_id"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}
	writeJSON(w, http.StatusOK, h.svc.ActivityFeed(filter))
}

package httpapi

import (
	"careops/internal/core"
	"careops/internal/validation"
	"careops/pkg/domain"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type houseDetail struct {
	House      domain.House           `json:"house"`
	Checklists []checklistDetail      `json:"checklists"`
	Events     []domain.CalendarEvent `json:"events"`
	Resources  []domain.Resource      `json:"resources"`
	Documents  []domain.Document      `json:"documents"`
}

type checklistDetail struct {
	Checklist domain.Checklist       `json:"checklist"`
	Items     []domain.ChecklistItem `json:"items"`
}

type houseCommitRequest struct {
	House    domain.House         `json:"house"`
	Changes  *domain.HouseChanges `json:"changes"`
	UserName string               `json:"user_name"`
}

func (h *Handler) listHouses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListHouses())
}

func (h *Handler) getHouse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	house, ok := h.svc.GetHouse(id)
	if !ok {
		writeError(w, http.StatusNotFound, "house not found")
		return
	}
	store := h.svc.Store()
	checklists := store.ListChecklists(id)
	details := make([]checklistDetail, 0, len(checklists))
	for _, cl := range checklists {
		details = append(details, checklistDetail{
			Checklist: cl,
			Items:     store.ListChecklistItems(cl.ID),
		})
	}
	writeJSON(w, http.StatusOK, houseDetail{
		House:      house,
		Checklists: details,
		Events:     store.ListCalendarEvents(id),
		Resources:  store.ListResources(id),
		Documents:  store.ListDocuments(domain.EntityHouse, id),
	})
}

func (h *Handler) createHouse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		House    domain.House `json:"house"`
		UserName string       `json:"user_name"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := validation.ValidateHouse(req.House); fields.Any() {
		writeValidationErrors(w, fields)
		return
	}
	created, err := h.svc.CreateHouse(r.Context(), req.House, req.UserName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) commitHouse(w http.ResponseWriter, r *http.Request) {
	var req houseCommitRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.House.ID = id
	}
	fields := validation.ValidateHouse(req.House)
	for key, msg := range validation.ValidateHouseChanges(req.Changes) {
		fields[key] = msg
	}
	if fields.Any() {
		writeValidationErrors(w, fields)
		return
	}
	res, _, err := h.svc.CommitHouse(r.Context(), core.HouseSave{
		House:    req.House,
		Changes:  req.Changes,
		UserName: req.UserName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commitResponse{Result: res})
}

func (h *Handler) archiveHouse(w http.ResponseWriter, r *http.Request) {
	archived, err := h.svc.ArchiveHouse(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("user"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archived)
}

func (h *Handler) uploadHouseDocument(w http.ResponseWriter, r *http.Request) {
	h.uploadDocument(w, r, domain.EntityHouse)
}

func (h *Handler) uploadHouseResource(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	created, err := h.svc.UploadResource(r.Context(), chi.URLParam(r, "id"),
		header.Filename, header.Header.Get("Content-Type"), r.FormValue("category"), file, r.FormValue("user"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

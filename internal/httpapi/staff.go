package httpapi

import (
	"careops/internal/core"
	"careops/internal/validation"
	"careops/pkg/domain"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type staffDetail struct {
	Staff      domain.Staff              `json:"staff"`
	Compliance []domain.ComplianceRecord `json:"compliance"`
	Documents  []domain.Document         `json:"documents"`
}

type staffCommitRequest struct {
	Staff    domain.Staff         `json:"staff"`
	Changes  *domain.StaffChanges `json:"changes"`
	UserName string               `json:"user_name"`
}

func (h *Handler) listStaff(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListStaff())
}

func (h *Handler) getStaff(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, ok := h.svc.GetStaff(id)
	if !ok {
		writeError(w, http.StatusNotFound, "staff member not found")
		return
	}
	store := h.svc.Store()
	writeJSON(w, http.StatusOK, staffDetail{
		Staff:      st,
		Compliance: store.ListComplianceRecords(id),
		Documents:  store.ListDocuments(domain.EntityStaff, id),
	})
}

func (h *Handler) createStaff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Staff    domain.Staff `json:"staff"`
		UserName string       `json:"user_name"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := validation.ValidateStaff(req.Staff); fields.Any() {
		writeValidationErrors(w, fields)
		return
	}
	created, err := h.svc.CreateStaff(r.Context(), req.Staff, req.UserName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) commitStaff(w http.ResponseWriter, r *http.Request) {
	var req staffCommitRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.Staff.ID = id
	}
	fields := validation.ValidateStaff(req.Staff)
	for key, msg := range validation.ValidateStaffChanges(req.Changes) {
		fields[key] = msg
	}
	if fields.Any() {
		writeValidationErrors(w, fields)
		return
	}
	res, _, err := h.svc.CommitStaff(r.Context(), core.StaffSave{
		Staff:    req.Staff,
		Changes:  req.Changes,
		UserName: req.UserName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commitResponse{Result: res})
}

func (h *Handler) archiveStaff(w http.ResponseWriter, r *http.Request) {
	archived, err := h.svc.ArchiveStaff(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("user"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archived)
}

func (h *Handler) uploadStaffDocument(w http.ResponseWriter, r *http.Request) {
	h.uploadDocument(w, r, domain.EntityStaff)
}

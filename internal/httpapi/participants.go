package httpapi

import (
	"careops/internal/core"
	"careops/internal/validation"
	"careops/pkg/domain"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type participantDetail struct {
	Participant domain.Participant     `json:"participant"`
	Goals       []domain.Goal          `json:"goals"`
	Medications []domain.Medication    `json:"medications"`
	Contacts    []domain.Contact       `json:"contacts"`
	Funding     []domain.FundingRecord `json:"funding"`
	ShiftNotes  []domain.ShiftNote     `json:"shift_notes"`
	Documents   []domain.Document      `json:"documents"`
}

type participantCommitRequest struct {
	Participant domain.Participant         `json:"participant"`
	Changes     *domain.ParticipantChanges `json:"changes"`
	UserName    string                     `json:"user_name"`
}

type commitResponse struct {
	Result core.CommitResult `json:"result"`
}

func (h *Handler) listParticipants(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListParticipants())
}

func (h *Handler) getParticipant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := h.svc.GetParticipant(id)
	if !ok {
		writeError(w, http.StatusNotFound, "participant not found")
		return
	}
	store := h.svc.Store()
	writeJSON(w, http.StatusOK, participantDetail{
		Participant: p,
		Goals:       store.ListGoals(id),
		Medications: store.ListMedications(id),
		Contacts:    store.ListContacts(id),
		Funding:     store.ListFundingRecords(id),
		ShiftNotes:  store.ListShiftNotes(id),
		Documents:   store.ListDocuments(domain.EntityParticipant, id),
	})
}

func (h *Handler) createParticipant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Participant domain.Participant `json:"participant"`
		UserName    string             `json:"user_name"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := validation.ValidateParticipant(req.Participant); fields.Any() {
		writeValidationErrors(w, fields)
		return
	}
	created, err := h.svc.CreateParticipant(r.Context(), req.Participant, req.UserName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) commitParticipant(w http.ResponseWriter, r *http.Request) {
	var req participantCommitRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.Participant.ID = id
	}
	fields := validation.ValidateParticipant(req.Participant)
	for key, msg := range validation.ValidateParticipantChanges(req.Changes) {
		fields[key] = msg
	}
	if fields.Any() {
		writeValidationErrors(w, fields)
		return
	}
	res, _, err := h.svc.CommitParticipant(r.Context(), core.ParticipantSave{
		Participant: req.Participant,
		Changes:     req.Changes,
		UserName:    req.UserName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commitResponse{Result: res})
}

func (h *Handler) archiveParticipant(w http.ResponseWriter, r *http.Request) {
	archived, err := h.svc.ArchiveParticipant(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("user"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archived)
}

func (h *Handler) setParticipantPhoto(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()
	updated, err := h.svc.SetParticipantPhoto(r.Context(), chi.URLParam(r, "id"),
		header.Filename, header.Header.Get("Content-Type"), file, r.FormValue("user"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) uploadParticipantDocument(w http.ResponseWriter, r *http.Request) {
	h.uploadDocument(w, r, domain.EntityParticipant)
}

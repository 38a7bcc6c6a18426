package httpapi

import (
	"bytes"
	"careops/internal/core"
	blobmem "careops/internal/infra/blob/memory"
	"careops/internal/infra/persistence/memory"
	"careops/pkg/domain"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *core.Service) {
	t.Helper()
	svc := core.NewService(memory.NewStore(), blobmem.New())
	return NewHandler(svc, nil), svc
}

func doJSON(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Routes(nil).ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateParticipant(t *testing.T) {
	h, svc := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/participants", map[string]any{
		"participant": map[string]any{"first_name": "Jordan", "last_name": "Lee"},
		"user_name":   "Priya Sharma",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Participant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, domain.StatusActive, created.Status)

	_, ok := svc.GetParticipant(created.ID)
	require.True(t, ok)
}

func TestCreateParticipantValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/participants", map[string]any{
		"participant": map[string]any{"last_name": "Lee", "email": "not-an-email"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Fields, "first_name")
	require.Contains(t, resp.Fields, "email")
}

func TestGetParticipantDetail(t *testing.T) {
	h, svc := newTestHandler(t)
	p, err := svc.CreateParticipant(context.Background(), domain.Participant{FirstName: "Jordan", LastName: "Lee"}, "")
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodGet, "/api/participants/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Participant domain.Participant `json:"participant"`
		Goals       []domain.Goal      `json:"goals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Equal(t, p.ID, detail.Participant.ID)
	require.Empty(t, detail.Goals)

	rec = doJSON(t, h, http.MethodGet, "/api/participants/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommitParticipantWithPendingGoal(t *testing.T) {
	h, svc := newTestHandler(t)
	p, err := svc.CreateParticipant(context.Background(), domain.Participant{FirstName: "Jordan", LastName: "Lee"}, "")
	require.NoError(t, err)

	tempID := domain.NewTempID()
	rec := doJSON(t, h, http.MethodPost, "/api/participants/"+p.ID+"/commit", map[string]any{
		"participant": map[string]any{"first_name": "Jordan", "last_name": "Lee", "status": "active"},
		"changes": map[string]any{
			"goals": map[string]any{
				"to_add": []map[string]any{{
					"id":          tempID,
					"description": "Build daily living skills",
				}},
			},
		},
		"user_name": "Priya Sharma",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Result core.CommitResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, p.ID, resp.Result.Root)
	require.Equal(t, 1, resp.Result.Created)
	require.NotEmpty(t, resp.Result.TempIDs[tempID])

	goals := svc.Store().ListGoals(p.ID)
	require.Len(t, goals, 1)
	require.Equal(t, p.ID, goals[0].ParticipantID)
	require.False(t, domain.IsTempID(goals[0].ID))
}

func TestCommitHouseValidatesPendingRows(t *testing.T) {
	h, svc := newTestHandler(t)
	house, err := svc.CreateHouse(context.Background(), domain.House{Name: "Acacia House"}, "")
	require.NoError(t, err)

	checklistTemp := domain.NewTempID()
	rec := doJSON(t, h, http.MethodPost, "/api/houses/"+house.ID+"/commit", map[string]any{
		"house": map[string]any{"name": "Acacia House"},
		"changes": map[string]any{
			"checklists": map[string]any{
				"to_add": []map[string]any{{"id": checklistTemp, "frequency": "daily"}},
			},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Fields, "checklists["+checklistTemp+"].name")
	require.Empty(t, svc.Store().ListChecklists(house.ID))
}

func TestCommitStaffValidatesPendingRows(t *testing.T) {
	h, svc := newTestHandler(t)
	st, err := svc.CreateStaff(context.Background(), domain.Staff{FirstName: "Mia", LastName: "Chen"}, "")
	require.NoError(t, err)

	recordTemp := domain.NewTempID()
	rec := doJSON(t, h, http.MethodPost, "/api/staff/"+st.ID+"/commit", map[string]any{
		"staff": map[string]any{"first_name": "Mia", "last_name": "Chen"},
		"changes": map[string]any{
			"compliance": map[string]any{
				"to_add": []map[string]any{{"id": recordTemp, "status": "current"}},
			},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Fields, "compliance["+recordTemp+"].name")
}

func TestCommitNewHouseViaCollectionRoute(t *testing.T) {
	h, svc := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/houses/commit", map[string]any{
		"house": map[string]any{"name": "Acacia House", "capacity": 4},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Result core.CommitResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, ok := svc.GetHouse(resp.Result.Root)
	require.True(t, ok)
}

func TestArchiveParticipantEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	p, err := svc.CreateParticipant(context.Background(), domain.Participant{FirstName: "Jordan", LastName: "Lee"}, "")
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/participants/%s/archive?user=Priya", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var archived domain.Participant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &archived))
	require.Equal(t, domain.StatusArchived, archived.Status)

	rec = doJSON(t, h, http.MethodPost, "/api/participants/missing/archive", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadParticipantDocument(t *testing.T) {
	h, svc := newTestHandler(t)
	p, err := svc.CreateParticipant(context.Background(), domain.Participant{FirstName: "Jordan", LastName: "Lee"}, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "care-plan.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("plan contents"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("user", "Priya Sharma"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/participants/"+p.ID+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Routes(nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var doc domain.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Equal(t, "care-plan.pdf", doc.Name)
	require.True(t, strings.HasPrefix(doc.StorageKey, "documents/participant/"))

	_, rc, err := svc.Blobs().Get(context.Background(), doc.StorageKey)
	require.NoError(t, err)
	rc.Close()
}

func TestActivityFeedEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	ctx := context.Background()
	_, err := svc.CreateParticipant(ctx, domain.Participant{FirstName: "Ana", LastName: "First"}, "")
	require.NoError(t, err)
	second, err := svc.CreateParticipant(ctx, domain.Participant{FirstName: "Ben", LastName: "Second"}, "")
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodGet, "/api/activity?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []domain.ActivityEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, second.ID, entries[0].EntityID)

	rec = doJSON(t, h, http.MethodGet, "/api/activity?limit=oops", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentURLUnsupportedBackend(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/api/documents/url?key=documents/x", nil)
	require.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/documents/url", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/service/logger"
	"github.com/benefitnav/benefitnav/internal/usecase"
	"github.com/benefitnav/benefitnav/pkg/response"
)

// DraftHandler handles HTTP requests for application drafts
type DraftHandler struct {
	draftUseCase *usecase.DraftUseCase
	logger       logger.Logger
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(draftUseCase *usecase.DraftUseCase, log logger.Logger) *DraftHandler {
	return &DraftHandler{
		draftUseCase: draftUseCase,
		logger:       log,
	}
}

// RegisterRoutes registers draft routes
func (h *DraftHandler) RegisterRoutes(router *mux.Router, auth *AuthMiddleware) {
	router.HandleFunc("/api/v1/drafts", auth.RequireAuth(h.SaveDraft)).Methods("POST")
	router.HandleFunc("/api/v1/drafts", auth.RequireAuth(h.LoadDraft)).Methods("GET")
	router.HandleFunc("/api/v1/drafts", auth.RequireAuth(h.ClearDraft)).Methods("DELETE")
	router.HandleFunc("/api/v1/drafts/incomplete", auth.RequireAuth(h.ListIncomplete)).Methods("GET")
	router.HandleFunc("/api/v1/drafts/beacon", auth.RequireAuth(h.SaveBeacon)).Methods("POST")
}

type saveDraftBody struct {
	DraftID         string         `json:"draft_id"`
	CurrentStep     int            `json:"current_step"`
	ApplicationData domain.Payload `json:"application_data"`
}

// SaveDraft handles a full-snapshot draft save
func (h *DraftHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var body saveDraftBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	result, err := h.draftUseCase.SaveDraft(r.Context(), usecase.SaveDraftRequest{
		OwnerID:     ownerID(r.Context()),
		DraftID:     body.DraftID,
		CurrentStep: body.CurrentStep,
		Payload:     body.ApplicationData,
		Metadata:    requestMetadata(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Draft saved", result)
}

// SaveBeacon accepts the last-gasp save fired as a session is torn down.
// The sender never reads the response, so the body is decoded leniently and
// the status is 204 even when the save fails; the failure is only logged.
func (h *DraftHandler) SaveBeacon(w http.ResponseWriter, r *http.Request) {
	var body saveDraftBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	_, err := h.draftUseCase.SaveDraft(r.Context(), usecase.SaveDraftRequest{
		OwnerID:     ownerID(r.Context()),
		DraftID:     body.DraftID,
		CurrentStep: body.CurrentStep,
		Payload:     body.ApplicationData,
		Metadata:    requestMetadata(r),
	})
	if err != nil {
		h.logger.Warn(r.Context(), "beacon save failed", map[string]interface{}{
			"owner_id": ownerID(r.Context()),
			"error":    err.Error(),
		})
	}

	w.WriteHeader(http.StatusNoContent)
}

// LoadDraft handles retrieving the caller's draft, by id when given,
// otherwise the most recently updated one. No saved progress is a normal
// outcome, not an error: the wizard starts fresh.
func (h *DraftHandler) LoadDraft(w http.ResponseWriter, r *http.Request) {
	view, err := h.draftUseCase.LoadDraft(r.Context(), usecase.LoadDraftRequest{
		OwnerID:  ownerID(r.Context()),
		DraftID:  r.URL.Query().Get("draft_id"),
		Metadata: requestMetadata(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if view == nil {
		response.Success(w, http.StatusOK, "No saved progress found", nil)
		return
	}

	response.Success(w, http.StatusOK, "Draft loaded", view)
}

// ClearDraft handles scoped draft deletion
func (h *DraftHandler) ClearDraft(w http.ResponseWriter, r *http.Request) {
	err := h.draftUseCase.ClearDraft(r.Context(), usecase.ClearDraftRequest{
		OwnerID:     ownerID(r.Context()),
		DraftID:     r.URL.Query().Get("draft_id"),
		BenefitType: domain.BenefitType(r.URL.Query().Get("benefit_type")),
		Metadata:    requestMetadata(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Draft cleared", nil)
}

// ListIncomplete handles the incomplete-applications listing
func (h *DraftHandler) ListIncomplete(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.draftUseCase.ListIncomplete(r.Context(), ownerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Incomplete applications", map[string]interface{}{
		"drafts": summaries,
		"total":  len(summaries),
	})
}

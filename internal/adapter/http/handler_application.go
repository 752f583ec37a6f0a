package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/usecase"
	"github.com/benefitnav/benefitnav/pkg/response"
)

// ApplicationHandler handles HTTP requests for submitted applications
type ApplicationHandler struct {
	submitUseCase *usecase.SubmitUseCase
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(submitUseCase *usecase.SubmitUseCase) *ApplicationHandler {
	return &ApplicationHandler{
		submitUseCase: submitUseCase,
	}
}

// RegisterRoutes registers application routes
func (h *ApplicationHandler) RegisterRoutes(router *mux.Router, auth *AuthMiddleware) {
	router.HandleFunc("/api/v1/applications", auth.RequireAuth(h.Submit)).Methods("POST")
	router.HandleFunc("/api/v1/applications", auth.RequireAuth(h.ListSubmitted)).Methods("GET")
}

type submitBody struct {
	BenefitType     string         `json:"benefit_type"`
	ApplicationData domain.Payload `json:"application_data"`
}

// Submit finalizes an application
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	view, err := h.submitUseCase.Submit(r.Context(), usecase.SubmitRequest{
		OwnerID:     ownerID(r.Context()),
		BenefitType: domain.BenefitType(body.BenefitType),
		Payload:     body.ApplicationData,
		Metadata:    requestMetadata(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "Application submitted", view)
}

// ListSubmitted lists the caller's submitted applications
func (h *ApplicationHandler) ListSubmitted(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.submitUseCase.ListSubmitted(r.Context(), ownerID(r.Context()), requestMetadata(r))
	if err != nil {
		writeError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Submitted applications", map[string]interface{}{
		"applications": summaries,
		"total":        len(summaries),
	})
}

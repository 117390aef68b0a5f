package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/drifter/internal/campaign"
	"github.com/jwebster45206/drifter/pkg/crew"
	"github.com/jwebster45206/drifter/pkg/state"
)

// ListCampaignsResponse is the body of GET /v1/campaigns.
type ListCampaignsResponse struct {
	Campaigns []uuid.UUID `json:"campaigns"`
}

type CampaignHandler struct {
	controller *campaign.Controller
	logger     *slog.Logger
}

func NewCampaignHandler(controller *campaign.Controller, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		controller: controller,
		logger:     logger,
	}
}

// ServeHTTP handles HTTP requests for campaign operations
// Routes:
// POST /v1/campaigns                 - Start a new campaign (simulates day 1)
// GET /v1/campaigns                  - List saved campaign ids
// GET /v1/campaigns/{id}             - Read a campaign snapshot
// DELETE /v1/campaigns/{id}          - Reset a campaign
// POST /v1/campaigns/{id}/advance    - Simulate the next day
// POST /v1/campaigns/{id}/save       - Persist the current snapshot
// POST /v1/campaigns/{id}/intro      - Mark the intro as seen
func (h *CampaignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/campaigns"), "/")
	if path == "" {
		switch r.Method {
		case http.MethodPost:
			h.handleStart(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			h.logger.Warn("Method not allowed for campaigns endpoint", "method", r.Method)
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST, GET")
		}
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		writeError(w, h.logger, http.StatusNotFound, "Unknown campaign route")
		return
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid campaign ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid campaign ID format")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, id)
		case http.MethodDelete:
			h.handleReset(w, r, id)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}
	switch parts[1] {
	case "advance":
		h.handleAdvance(w, r, id)
	case "save":
		h.handleSave(w, r, id)
	case "intro":
		h.handleIntro(w, r, id)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown campaign action")
	}
}

func (h *CampaignHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req campaign.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid start request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.controller.Start(r.Context(), req)
	if err != nil {
		h.writeControllerError(w, err, uuid.Nil)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, result)
}

func (h *CampaignHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.controller.List(r.Context())
	if err != nil {
		h.writeControllerError(w, err, uuid.Nil)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ListCampaignsResponse{Campaigns: ids})
}

func (h *CampaignHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	gs, err := h.controller.Load(r.Context(), id)
	if err != nil {
		h.writeControllerError(w, err, id)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gs)
}

func (h *CampaignHandler) handleReset(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.controller.Reset(r.Context(), id); err != nil {
		h.writeControllerError(w, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandler) handleAdvance(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	result, err := h.controller.Advance(r.Context(), id)
	if err != nil {
		h.writeControllerError(w, err, id)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *CampaignHandler) handleSave(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	gs, err := h.controller.Save(r.Context(), id)
	if err != nil {
		h.writeControllerError(w, err, id)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gs)
}

func (h *CampaignHandler) handleIntro(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	gs, err := h.controller.MarkIntroSeen(r.Context(), id)
	if err != nil {
		h.writeControllerError(w, err, id)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, gs)
}

// writeControllerError maps domain errors onto status codes.
func (h *CampaignHandler) writeControllerError(w http.ResponseWriter, err error, id uuid.UUID) {
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	case errors.Is(err, campaign.ErrBusy), errors.Is(err, state.ErrCampaignComplete):
		writeError(w, h.logger, http.StatusConflict, err.Error())
	case errors.Is(err, campaign.ErrInvalidRequest),
		errors.Is(err, crew.ErrInvalidRoster),
		errors.Is(err, crew.ErrInvalidCharacter):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Campaign request failed", "campaign_id", id.String(), "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
	}
}

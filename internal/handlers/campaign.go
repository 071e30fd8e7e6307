package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jleechanorg/claude-commands-sub003/internal/services"
	"github.com/jleechanorg/claude-commands-sub003/pkg/actor"
	"github.com/jleechanorg/claude-commands-sub003/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// CampaignHandler serves campaign state CRUD.
type CampaignHandler struct {
	storage services.Storage
	logger  *slog.Logger
}

func NewCampaignHandler(storage services.Storage, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		storage: storage,
		logger:  logger,
	}
}

// ServeHTTP handles HTTP requests for campaign state operations
// Routes:
// POST /v1/campaigns         - Create new campaign
// GET /v1/campaigns/{id}     - Read campaign state by ID
// DELETE /v1/campaigns/{id}  - Delete campaign by ID
func (h *CampaignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/v1/campaigns")
	var campaignID uuid.UUID
	var err error

	if path != "" && path != "/" {
		idStr := strings.Trim(path, "/")
		campaignID, err = uuid.Parse(idStr)
		if err != nil {
			h.logger.Warn("Invalid campaign ID", "id", idStr, "error", err)
			h.writeError(w, http.StatusBadRequest, "Invalid campaign ID format")
			return
		}
	}

	switch r.Method {
	case http.MethodPost:
		h.handleCreate(w, r)

	case http.MethodGet:
		if campaignID == uuid.Nil {
			h.writeError(w, http.StatusBadRequest, "Campaign ID is required for GET requests")
			return
		}
		h.handleRead(w, r, campaignID)

	case http.MethodDelete:
		if campaignID == uuid.Nil {
			h.writeError(w, http.StatusBadRequest, "Campaign ID is required for DELETE requests")
			return
		}
		h.handleDelete(w, r, campaignID)

	default:
		h.logger.Warn("Method not allowed for campaign endpoint", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST, GET, DELETE")
	}
}

// CreateCampaignRequest defines the request body for creating a new campaign.
// All fields are optional; an empty body creates an empty campaign.
type CreateCampaignRequest struct {
	PlayerCharacterData map[string]any `json:"player_character_data,omitempty"`
	WorldData           map[string]any `json:"world_data,omitempty"`
	CustomCampaignState map[string]any `json:"custom_campaign_state,omitempty"`
}

func (h *CampaignHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.logger.Warn("Invalid create campaign request body", "error", err)
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	// A supplied character sheet must build into a valid d20 actor before
	// the campaign is accepted.
	if len(req.PlayerCharacterData) > 0 {
		pc, err := actor.FromStateData(req.PlayerCharacterData)
		if err != nil {
			h.logger.Warn("Invalid player character data", "error", err)
			h.writeError(w, http.StatusBadRequest, "Invalid player character data: "+err.Error())
			return
		}
		h.logger.Debug("Player character validated",
			"name", pc.Spec.Name, "level", pc.Spec.Level, "hp", pc.Actor.HP(), "ac", pc.Actor.AC())
	}

	gs := state.NewCanonicalState()
	for k, v := range req.PlayerCharacterData {
		gs.PlayerCharacterData[k] = v
	}
	for k, v := range req.WorldData {
		gs.WorldData[k] = v
	}
	for k, v := range req.CustomCampaignState {
		gs.CustomCampaignState[k] = v
	}
	gs.Normalize()

	if err := h.storage.SaveState(r.Context(), gs.ID, gs); err != nil {
		h.logger.Error("Failed to save new campaign", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to create campaign")
		return
	}

	h.logger.Info("Campaign created", "campaign_id", gs.ID)
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(gs); err != nil {
		h.logger.Error("Failed to encode campaign response", "error", err)
	}
}

func (h *CampaignHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	gs, err := h.storage.LoadState(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load campaign", "campaign_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to load campaign")
		return
	}
	if gs == nil {
		h.writeError(w, http.StatusNotFound, "Campaign not found")
		return
	}

	if err := json.NewEncoder(w).Encode(gs); err != nil {
		h.logger.Error("Failed to encode campaign response", "error", err)
	}
}

func (h *CampaignHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteState(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete campaign", "campaign_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to delete campaign")
		return
	}

	h.logger.Info("Campaign deleted", "campaign_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CampaignHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}

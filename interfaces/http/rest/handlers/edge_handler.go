package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"polymath-backend/application/services"
	"polymath-backend/domain/core/entities"
	"polymath-backend/domain/core/valueobjects"
	"polymath-backend/pkg/auth"
	"polymath-backend/pkg/common"
	"polymath-backend/pkg/utils"
)

// EdgeHandler serves explicit edge management.
type EdgeHandler struct {
	edges  *services.EdgeService
	logger *zap.Logger
}

// NewEdgeHandler creates a new edge handler.
func NewEdgeHandler(edges *services.EdgeService, logger *zap.Logger) *EdgeHandler {
	return &EdgeHandler{edges: edges, logger: logger}
}

// CreateEdgeRequest is the request body for creating an explicit edge.
type CreateEdgeRequest struct {
	SourceType string `json:"source_type" validate:"required,oneof=project thought article list_entry"`
	SourceID   string `json:"source_id" validate:"required,uuid"`
	TargetType string `json:"target_type" validate:"required,oneof=project thought article list_entry"`
	TargetID   string `json:"target_id" validate:"required,uuid"`
	Reasoning  string `json:"reasoning,omitempty" validate:"omitempty,max=500"`
}

// CreateEdge handles POST /edges. Already-connected pairs come back as 409,
// whichever direction or creator the existing edge has.
func (h *EdgeHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req CreateEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	sourceType, _ := entities.ParseItemType(req.SourceType)
	targetType, _ := entities.ParseItemType(req.TargetType)
	sourceID, _ := valueobjects.NewItemIDFromString(req.SourceID)
	targetID, _ := valueobjects.NewItemIDFromString(req.TargetID)

	reasoning := req.Reasoning
	if reasoning == "" {
		reasoning = "Manually connected"
	}

	edge, err := h.edges.CreateUserEdge(r.Context(), user.UserID, sourceType, sourceID, targetType, targetID, reasoning)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, toEdgeResponse(edge))
}

// DeleteEdge handles DELETE /edges/{edgeKey}. The key is the canonical pair
// key with its separator percent-encoded. Deleting an absent edge succeeds.
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	edgeKey := chi.URLParam(r, "edgeKey")
	if edgeKey == "" {
		common.RespondError(w, http.StatusBadRequest, "INVALID_EDGE_KEY", "Edge key is required")
		return
	}

	if err := h.edges.DeleteEdge(r.Context(), user.UserID, edgeKey); err != nil {
		respondServiceError(w, err)
		return
	}

	common.RespondNoContent(w)
}

package handlers

import (
	"errors"
	"net/http"

	"polymath-backend/application/ports"
	"polymath-backend/domain/core/entities"
	"polymath-backend/pkg/common"
	pkgerrors "polymath-backend/pkg/errors"
	"polymath-backend/pkg/utils"
)

// EdgeResponse is the wire form of a stored edge.
type EdgeResponse struct {
	PairKey    string  `json:"pair_key"`
	SourceType string  `json:"source_type"`
	SourceID   string  `json:"source_id"`
	TargetType string  `json:"target_type"`
	TargetID   string  `json:"target_id"`
	CreatedBy  string  `json:"created_by"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
	CreatedAt  string  `json:"created_at"`
}

func toEdgeResponse(edge *entities.Edge) EdgeResponse {
	return EdgeResponse{
		PairKey:    edge.PairKey(),
		SourceType: string(edge.SourceType),
		SourceID:   edge.SourceID.String(),
		TargetType: string(edge.TargetType),
		TargetID:   edge.TargetID.String(),
		CreatedBy:  string(edge.CreatedBy),
		Reasoning:  edge.Reasoning,
		Confidence: edge.Confidence,
		CreatedAt:  utils.FormatRFC3339(edge.CreatedAt),
	}
}

// respondServiceError maps service-layer errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ports.ErrItemNotFound):
		common.RespondError(w, http.StatusNotFound, "NOT_FOUND", "Item not found")
	case errors.Is(err, ports.ErrEdgeExists):
		common.RespondError(w, http.StatusConflict, "EDGE_EXISTS", "An edge already exists for this item pair")
	default:
		status := pkgerrors.HTTPStatusOf(err)
		if status >= 500 {
			common.RespondError(w, status, "INTERNAL_ERROR", "Internal server error")
			return
		}
		common.RespondError(w, status, "REQUEST_ERROR", err.Error())
	}
}

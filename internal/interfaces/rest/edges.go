package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	app_service "ens-identity-graph/internal/application/service"
	"ens-identity-graph/internal/domain/entity"

	"go.uber.org/zap"
)

type createEdgeRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type edgesResponse struct {
	Edges []entity.Edge `json:"edges"`
	Mode  string        `json:"mode"`
}

// HandleEdgesList returns the current edge view
func (c *Controller) HandleEdgesList(w http.ResponseWriter, r *http.Request) {
	edges := c.Edges.ListEdges(r.Context())
	if edges == nil {
		edges = []entity.Edge{}
	}
	c.writeJSON(w, http.StatusOK, edgesResponse{Edges: edges, Mode: c.Edges.Mode().String()})
}

// HandleEdgeCreate adds an edge
func (c *Controller) HandleEdgeCreate(w http.ResponseWriter, r *http.Request) {
	var req createEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Target) == "" {
		c.writeError(w, http.StatusBadRequest, "source and target are required")
		return
	}

	edge, err := c.Edges.AddEdge(r.Context(), req.Source, req.Target)
	switch {
	case err == nil:
		c.writeJSON(w, http.StatusCreated, edge)
	case errors.Is(err, app_service.ErrInvalidEdge):
		c.writeError(w, http.StatusBadRequest, err.Error())
	default:
		c.logger.Error("Failed to create edge", zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, "failed to save edge")
	}
}

// HandleEdgeDelete removes an edge by path or query id
func (c *Controller) HandleEdgeDelete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(param(r, "id"))
	if id == "" {
		c.writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	err := c.Edges.DeleteEdge(r.Context(), id)
	switch {
	case err == nil:
		c.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
	case errors.Is(err, app_service.ErrEdgeNotFound):
		c.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app_service.ErrEdgePending):
		c.writeError(w, http.StatusConflict, err.Error())
	default:
		c.logger.Error("Failed to delete edge", zap.String("id", id), zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, "failed to delete edge")
	}
}

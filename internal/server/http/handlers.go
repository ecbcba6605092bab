package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/server/models"
)

type equipmentResponse struct {
	ID           string    `json:"id"`
	SerialNumber string    `json:"serial_number"`
	Name         string    `json:"name"`
	ImageURL     string    `json:"image_url"`
	Status       string    `json:"status"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	CreatedAt    time.Time `json:"created_at"`
}

type equipmentRequest struct {
	SerialNumber string `json:"serial_number"`
	Name         string `json:"name"`
	ImageURL     string `json:"image_url"`
	Status       string `json:"status"`
	Category     string `json:"category"`
	Location     string `json:"location"`
}

type bulkRequest struct {
	Equipment []equipmentRequest `json:"equipment"`
}

func (e equipmentRequest) model() models.Equipment {
	return models.Equipment{
		SerialNumber: e.SerialNumber,
		Name:         e.Name,
		ImageURL:     e.ImageURL,
		Status:       e.Status,
		Category:     e.Category,
		Location:     e.Location,
	}
}

func toResponse(e models.Equipment) equipmentResponse {
	return equipmentResponse{
		ID:           e.ID,
		SerialNumber: e.SerialNumber,
		Name:         e.Name,
		ImageURL:     e.ImageURL,
		Status:       e.Status,
		Category:     e.Category,
		Location:     e.Location,
		CreatedAt:    e.CreatedAt.UTC(),
	}
}

func toResponses(list []models.Equipment) []equipmentResponse {
	out := make([]equipmentResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toResponse(e))
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"equipment": toResponses(list)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.Search(r.Context(), r.URL.Query().Get("serial_number"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"equipment": toResponses(list)})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	e, err := s.catalog.Create(r.Context(), req.model())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"equipment": toResponse(*e)})
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	batch := make([]models.Equipment, 0, len(req.Equipment))
	for _, item := range req.Equipment {
		batch = append(batch, item.model())
	}

	list, err := s.catalog.BulkCreate(r.Context(), batch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"equipment": toResponses(list), "count": len(list)})
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "serial_number already exists")
	case errors.Is(err, common.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

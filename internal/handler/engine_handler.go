// internal/handler/engine_handler.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/leadflow-backend/internal/auth"
	"github.com/unclebandit/leadflow-backend/internal/controller"
	"github.com/unclebandit/leadflow-backend/internal/service"
)

// EngineHandler receives status callbacks from the workflow engine.
type EngineHandler struct {
	Service *service.CampaignService
	APIKey  string
}

// UpdateStatusHandler handles POST /internal/campaigns/{id}/status
func (h *EngineHandler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid request body"})
		return
	}

	zap.L().Info("📥 engine status callback", zap.String("campaign_id", id), zap.String("status", payload.Status))

	if err := h.Service.ApplyEngineStatus(r.Context(), id, payload.Status); err != nil {
		controller.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
}

// Routes mounts the callback behind the shared engine key.
func (h *EngineHandler) Routes(r chi.Router) {
	r.With(auth.RequireAPIKey(h.APIKey)).Post("/campaigns/{id}/status", h.UpdateStatusHandler)
}

// internal/controller/campaign_controller.go
package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/leadflow-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var body struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}

	result, err := c.CampaignService.CreateCampaign(r.Context(), user.ID, body.URL, body.Name)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	// Parse query parameters
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), user.ID, page, pageSize, status)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

// GetCampaign returns the poll read model: campaign, contacts, progress and should_poll.
func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	view, err := c.CampaignService.GetCampaignWithContacts(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"campaign": view})
}

func (c *CampaignController) RenameCampaign(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}

	campaign, err := c.CampaignService.RenameCampaign(r.Context(), chi.URLParam(r, "id"), user.ID, body.Name)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"campaign": campaign})
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := c.CampaignService.DeleteCampaign(r.Context(), chi.URLParam(r, "id"), user.ID); err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// DispatchCampaign hands a pending campaign to the engine again.
func (c *CampaignController) DispatchCampaign(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	result, err := c.CampaignService.ResubmitCampaign(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Routes mounts the campaign endpoints on r.
func (c *CampaignController) Routes(r chi.Router) {
	r.Get("/", c.ListCampaigns)
	r.Post("/", c.CreateCampaign)
	r.Get("/{id}", c.GetCampaign)
	r.Patch("/{id}", c.RenameCampaign)
	r.Delete("/{id}", c.DeleteCampaign)
	r.Post("/{id}/dispatch", c.DispatchCampaign)
}

// internal/controller/integration_controller.go
package controller

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/leadflow-backend/internal/service"
)

type IntegrationController struct {
	IntegrationService *service.IntegrationService
}

// serviceParam undoes the escaping of names like "Apollo API".
func serviceParam(r *http.Request) string {
	raw := chi.URLParam(r, "serviceName")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

func (c *IntegrationController) ListIntegrations(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, decision, err := c.IntegrationService.List(r.Context(), user.ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"integrations": list,
		"gate":         decision,
	})
}

func (c *IntegrationController) GetGate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	decision, err := c.IntegrationService.Gate(r.Context(), user.ID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (c *IntegrationController) GetIntegration(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	integration, err := c.IntegrationService.Get(r.Context(), user.ID, serviceParam(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"integration": integration})
}

func (c *IntegrationController) SaveIntegration(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var body struct {
		APIKey string `json:"apiKey"`
	}
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}

	integration, decision, err := c.IntegrationService.Save(r.Context(), user.ID, serviceParam(r), body.APIKey)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"integration": map[string]interface{}{
			"service_name": integration.ServiceName,
			"masked_key":   integration.MaskedKey(),
			"is_active":    integration.IsActive,
		},
		"gate": decision,
	})
}

func (c *IntegrationController) DeleteIntegration(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	decision, err := c.IntegrationService.Delete(r.Context(), user.ID, serviceParam(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "gate": decision})
}

// Routes mounts the integration endpoints on r. chi matches the static /gate
// ahead of {serviceName}.
func (c *IntegrationController) Routes(r chi.Router) {
	r.Get("/", c.ListIntegrations)
	r.Get("/gate", c.GetGate)
	r.Get("/{serviceName}", c.GetIntegration)
	r.Put("/{serviceName}", c.SaveIntegration)
	r.Delete("/{serviceName}", c.DeleteIntegration)
}

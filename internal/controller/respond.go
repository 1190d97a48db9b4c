// internal/controller/respond.go
package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/leadflow-backend/internal/auth"
	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// WriteError maps application errors onto status codes. Anything unrecognised is a 500
// and its message stays in the log.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation   *appErrors.ValidationError
		conflict     *appErrors.ConflictError
		gateDenied   *appErrors.CredentialGateError
		subscription *appErrors.SubscriptionRequiredError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": validation.Message})
	case appErrors.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{"error": conflict.Message})
	case errors.As(err, &gateDenied):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":                 gateDenied.Error(),
			"missing_mandatory":     gateDenied.MissingMandatory,
			"lead_source_satisfied": gateDenied.LeadSourceSatisfied,
		})
	case errors.As(err, &subscription):
		writeJSON(w, http.StatusPaymentRequired, map[string]any{"error": subscription.Error()})
	case errors.Is(err, appErrors.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	default:
		zap.L().Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
	}
}

// currentUser writes a 401 when the auth middleware did not run.
func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		WriteError(w, r, appErrors.ErrUnauthorized)
		return nil, false
	}
	return u, true
}

// decodeBody treats an empty body as an empty object.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return appErrors.NewValidation("invalid body")
	}
	return nil
}

// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthorized is returned when a request carries no valid identity.
var ErrUnauthorized = errors.New("unauthorized")

// ErrCampaignNotFound is returned for missing campaigns and for campaigns owned by someone else.
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrIntegrationNotFound is returned when a user has no integration for a service.
type ErrIntegrationNotFound struct {
	ServiceName string
}

func (e *ErrIntegrationNotFound) Error() string {
	return fmt.Sprintf("integration %q not found", e.ServiceName)
}

func NewIntegrationNotFound(service string) error {
	return &ErrIntegrationNotFound{ServiceName: service}
}

// ValidationError rejects a request before any state is touched.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a request that collides with existing state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// CredentialGateError is returned when a user's integrations do not allow campaign creation.
type CredentialGateError struct {
	MissingMandatory    []string
	LeadSourceSatisfied bool
}

func (e *CredentialGateError) Error() string {
	var parts []string
	if len(e.MissingMandatory) > 0 {
		parts = append(parts, "missing required integrations: "+strings.Join(e.MissingMandatory, ", "))
	}
	if !e.LeadSourceSatisfied {
		parts = append(parts, "at least one lead source integration is required")
	}
	if len(parts) == 0 {
		return "integrations do not allow campaign creation"
	}
	return strings.Join(parts, "; ")
}

// SubscriptionRequiredError is returned when billing does not allow creating campaigns.
type SubscriptionRequiredError struct {
	UserID string
}

func (e *SubscriptionRequiredError) Error() string {
	return "an active subscription is required to create campaigns"
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	var c *ErrCampaignNotFound
	var i *ErrIntegrationNotFound
	return errors.As(err, &c) || errors.As(err, &i)
}

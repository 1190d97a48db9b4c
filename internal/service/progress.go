package service

import (
	"strings"

	"github.com/unclebandit/leadflow-backend/internal/model"
)

// Progress counts the contacts known so far. Total grows while the engine is still writing rows.
type Progress struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
}

// Complete is the progress-bar notion of done. The stored status stays authoritative for the lifecycle.
func (p Progress) Complete() bool {
	return p.Total > 0 && p.Processed >= p.Total
}

// ComputeProgress counts a contact as processed as soon as any enrichment signal is present.
func ComputeProgress(contacts []model.Contact) Progress {
	p := Progress{Total: len(contacts)}
	for i := range contacts {
		if IsProcessed(&contacts[i]) {
			p.Processed++
		}
	}
	return p
}

func IsProcessed(c *model.Contact) bool {
	switch {
	case c.Status != nil && *c.Status == model.ContactStatusCompleted:
		return true
	case c.EmailVerified != nil && *c.EmailVerified:
		return true
	case c.Email != nil && !IsPlaceholderEmail(*c.Email):
		return true
	case present(c.FirstName), present(c.LastName):
		return true
	case present(c.Company):
		return true
	}
	return false
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

var placeholderEmails = map[string]bool{
	"":        true,
	"n/a":     true,
	"na":      true,
	"none":    true,
	"null":    true,
	"-":       true,
	"unknown": true,
}

var placeholderPrefixes = []string{"noemail@", "placeholder@"}
var placeholderDomains = []string{"@example.com", "@example.org"}

// IsPlaceholderEmail reports values that sources emit in place of a real address.
func IsPlaceholderEmail(email string) bool {
	e := strings.ToLower(strings.TrimSpace(email))
	if placeholderEmails[e] {
		return true
	}
	for _, p := range placeholderPrefixes {
		if strings.HasPrefix(e, p) {
			return true
		}
	}
	for _, d := range placeholderDomains {
		if strings.HasSuffix(e, d) {
			return true
		}
	}
	return false
}

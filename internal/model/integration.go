// internal/model/integration.go
package model

import (
	"strings"
	"time"
)

// ServiceName identifies one credential slot. The set is fixed at build time.
type ServiceName string

const (
	ServiceApollo     ServiceName = "Apollo API"
	ServiceLeadMagic  ServiceName = "LeadMagic"
	ServiceIcyPeas    ServiceName = "IcyPeas"
	ServiceTryKitt    ServiceName = "TryKitt"
	ServiceALeads     ServiceName = "A-Leads"
	ServiceMailVerify ServiceName = "MailVerify"
	ServiceEnrichly   ServiceName = "Enrichly"
)

// KnownServices lists every service in display order.
var KnownServices = []ServiceName{
	ServiceApollo,
	ServiceLeadMagic,
	ServiceIcyPeas,
	ServiceTryKitt,
	ServiceALeads,
	ServiceMailVerify,
	ServiceEnrichly,
}

// ParseServiceName matches raw against the known services, ignoring case and surrounding space.
func ParseServiceName(raw string) (ServiceName, bool) {
	raw = strings.TrimSpace(raw)
	for _, s := range KnownServices {
		if strings.EqualFold(string(s), raw) {
			return s, true
		}
	}
	return "", false
}

type Integration struct {
	ID          string      `db:"id" json:"id"`
	UserID      string      `db:"user_id" json:"user_id"`
	ServiceName ServiceName `db:"service_name" json:"service_name"`
	APIKey      string      `db:"api_key" json:"api_key"`
	IsActive    bool        `db:"is_active" json:"is_active"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// MaskedKey keeps only the last four characters visible.
func (i Integration) MaskedKey() string {
	if len(i.APIKey) <= 4 {
		return strings.Repeat("•", len(i.APIKey))
	}
	return strings.Repeat("•", len(i.APIKey)-4) + i.APIKey[len(i.APIKey)-4:]
}

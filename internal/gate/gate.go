// Package gate decides whether a user's integrations allow a new enrichment job.
package gate

import (
	"fmt"
	"sort"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

// Policy splits the known services into three disjoint groups.
// Every Mandatory service must be active, at least one LeadSource service must be
// active, and Optional services are only listed for display.
type Policy struct {
	Mandatory  []model.ServiceName
	LeadSource []model.ServiceName
	Optional   []model.ServiceName
}

var DefaultPolicy = Policy{
	Mandatory:  []model.ServiceName{model.ServiceApollo},
	LeadSource: []model.ServiceName{model.ServiceLeadMagic, model.ServiceIcyPeas},
	Optional: []model.ServiceName{
		model.ServiceTryKitt,
		model.ServiceALeads,
		model.ServiceMailVerify,
		model.ServiceEnrichly,
	},
}

type Decision struct {
	Allowed             bool                `json:"allowed"`
	MissingMandatory    []model.ServiceName `json:"missing_mandatory"`
	LeadSourceSatisfied bool                `json:"lead_source_satisfied"`
}

// Evaluate has no side effects; callers re-run it after every integration change.
func (p Policy) Evaluate(active map[model.ServiceName]bool) Decision {
	missing := []model.ServiceName{}
	for _, s := range p.Mandatory {
		if !active[s] {
			missing = append(missing, s)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	leadSource := false
	for _, s := range p.LeadSource {
		if active[s] {
			leadSource = true
			break
		}
	}

	return Decision{
		Allowed:             len(missing) == 0 && leadSource,
		MissingMandatory:    missing,
		LeadSourceSatisfied: leadSource,
	}
}

// Validate rejects a policy that puts one service in two groups.
func (p Policy) Validate() error {
	seen := map[model.ServiceName]string{}
	groups := []struct {
		name     string
		services []model.ServiceName
	}{
		{"mandatory", p.Mandatory},
		{"lead source", p.LeadSource},
		{"optional", p.Optional},
	}
	for _, g := range groups {
		for _, s := range g.services {
			if other, ok := seen[s]; ok {
				return fmt.Errorf("service %q is both %s and %s", s, other, g.name)
			}
			seen[s] = g.name
		}
	}
	return nil
}

// Err converts a denial into the error returned to callers; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	missing := make([]string, len(d.MissingMandatory))
	for i, s := range d.MissingMandatory {
		missing[i] = string(s)
	}
	return &appErrors.CredentialGateError{
		MissingMandatory:    missing,
		LeadSourceSatisfied: d.LeadSourceSatisfied,
	}
}

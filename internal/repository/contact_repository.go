package repository

import (
	"context"
	"database/sql"

	"github.com/unclebandit/leadflow-backend/internal/model"
)

// ContactRepositoryInterface only reads: contact rows are written by the workflow engine.
type ContactRepositoryInterface interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]model.Contact, error)
}

type ContactRepository struct {
	DB *sql.DB
}

func (r *ContactRepository) ListByCampaign(ctx context.Context, campaignID string) ([]model.Contact, error) {
	query := `
		SELECT id, campaign_id, first_name, last_name, email, company, company_domain, title,
			   phone, linkedin_url, city, state, country, enriched_by, email_verified,
			   email_verification_status, status, created_at, updated_at
		FROM contacts
		WHERE campaign_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(
			&c.ID, &c.CampaignID, &c.FirstName, &c.LastName, &c.Email, &c.Company, &c.CompanyDomain, &c.Title,
			&c.Phone, &c.LinkedinURL, &c.City, &c.State, &c.Country, &c.EnrichedBy, &c.EmailVerified,
			&c.EmailVerificationStatus, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)

// internal/model/contact.go
package model

import "time"

// Contact is one row of enrichment output. The engine fills columns independently,
// so every enrichment field stays nil until it lands.
type Contact struct {
	ID                      string    `db:"id" json:"id"`
	CampaignID              string    `db:"campaign_id" json:"campaign_id"`
	FirstName               *string   `db:"first_name" json:"first_name"`
	LastName                *string   `db:"last_name" json:"last_name"`
	Email                   *string   `db:"email" json:"email"`
	Company                 *string   `db:"company" json:"company"`
	CompanyDomain           *string   `db:"company_domain" json:"company_domain"`
	Title                   *string   `db:"title" json:"title"`
	Phone                   *string   `db:"phone" json:"phone"`
	LinkedinURL             *string   `db:"linkedin_url" json:"linkedin_url"`
	City                    *string   `db:"city" json:"city"`
	State                   *string   `db:"state" json:"state"`
	Country                 *string   `db:"country" json:"country"`
	EnrichedBy              *string   `db:"enriched_by" json:"enriched_by"`
	EmailVerified           *bool     `db:"email_verified" json:"email_verified"`
	EmailVerificationStatus *string   `db:"email_verification_status" json:"email_verification_status"`
	Status                  *string   `db:"status" json:"status"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// ContactStatusCompleted is the value the engine writes once a row is fully enriched.
const ContactStatusCompleted = "completed"

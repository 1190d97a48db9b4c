// internal/model/user.go
package model

import "time"

type User struct {
	ID                 string    `db:"id" json:"id"`
	ExternalID         string    `db:"external_id" json:"-"`
	Email              string    `db:"email" json:"email"`
	FirstName          *string   `db:"first_name" json:"first_name,omitempty"`
	SubscriptionStatus *string   `db:"subscription_status" json:"subscription_status,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Identity is the authenticated subject handed over by the identity provider.
type Identity struct {
	ExternalID string
	Email      string
	FirstName  string
}

package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/unclebandit/leadflow-backend/internal/model"
)

type UserRepositoryInterface interface {
	FindOrCreate(ctx context.Context, identity model.Identity) (*model.User, error)
	CanCreateCampaigns(ctx context.Context, userID string) (bool, error)
}

type UserRepository struct {
	DB *sql.DB
}

// FindOrCreate is a single conditional insert keyed by the identity provider subject,
// so concurrent first requests for the same subject converge on one row.
func (r *UserRepository) FindOrCreate(ctx context.Context, identity model.Identity) (*model.User, error) {
	var firstName *string
	if fn := strings.TrimSpace(identity.FirstName); fn != "" {
		firstName = &fn
	}
	query := `
		INSERT INTO users (id, external_id, email, first_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE
		SET email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			first_name = COALESCE(EXCLUDED.first_name, users.first_name),
			updated_at = NOW()
		RETURNING id, external_id, email, first_name, subscription_status, created_at, updated_at
	`
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, uuid.NewString(), identity.ExternalID, identity.Email, firstName).Scan(
		&u.ID, &u.ExternalID, &u.Email, &u.FirstName, &u.SubscriptionStatus, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CanCreateCampaigns reads the billing signal mirrored from the payment processor.
func (r *UserRepository) CanCreateCampaigns(ctx context.Context, userID string) (bool, error) {
	var status sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT subscription_status FROM users WHERE id=$1`, userID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return SubscriptionAllowsCampaigns(status.String), nil
}

func SubscriptionAllowsCampaigns(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return true
	}
	return false
}

var _ UserRepositoryInterface = (*UserRepository)(nil)

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

const activeServiceKeyIndex = "integrations_active_service_key_idx"

// IntegrationRepositoryInterface is the credential store adapter.
type IntegrationRepositoryInterface interface {
	ListByUser(ctx context.Context, userID string) ([]model.Integration, error)
	Get(ctx context.Context, userID string, service model.ServiceName) (*model.Integration, error)
	ListActiveServiceNames(ctx context.Context, userID string) (map[model.ServiceName]bool, error)
	FindActiveOwner(ctx context.Context, service model.ServiceName, apiKey string) (string, error)
	Upsert(ctx context.Context, userID string, service model.ServiceName, apiKey string) (*model.Integration, error)
	Delete(ctx context.Context, userID string, service model.ServiceName) (bool, error)
}

type IntegrationRepository struct {
	DB *sql.DB
}

const integrationColumns = `id, user_id, service_name, api_key, is_active, created_at, updated_at`

func scanIntegration(row interface{ Scan(...any) error }) (*model.Integration, error) {
	var i model.Integration
	if err := row.Scan(&i.ID, &i.UserID, &i.ServiceName, &i.APIKey, &i.IsActive, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *IntegrationRepository) ListByUser(ctx context.Context, userID string) ([]model.Integration, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+integrationColumns+` FROM integrations WHERE user_id=$1 ORDER BY service_name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Integration{}
	for rows.Next() {
		i, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, rows.Err()
}

func (r *IntegrationRepository) Get(ctx context.Context, userID string, service model.ServiceName) (*model.Integration, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+integrationColumns+` FROM integrations WHERE user_id=$1 AND service_name=$2`, userID, service)
	i, err := scanIntegration(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewIntegrationNotFound(string(service))
		}
		return nil, err
	}
	return i, nil
}

func (r *IntegrationRepository) ListActiveServiceNames(ctx context.Context, userID string) (map[model.ServiceName]bool, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT service_name FROM integrations WHERE user_id=$1 AND is_active`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	active := map[model.ServiceName]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		active[model.ServiceName(name)] = true
	}
	return active, rows.Err()
}

// FindActiveOwner returns the user holding apiKey for service, or "" when nobody does.
func (r *IntegrationRepository) FindActiveOwner(ctx context.Context, service model.ServiceName, apiKey string) (string, error) {
	var owner string
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM integrations WHERE service_name=$1 AND api_key=$2 AND is_active LIMIT 1`,
		service, apiKey,
	).Scan(&owner)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return owner, nil
}

// Upsert is last-write-wins per (user, service) and always reactivates the row.
func (r *IntegrationRepository) Upsert(ctx context.Context, userID string, service model.ServiceName, apiKey string) (*model.Integration, error) {
	query := `
		INSERT INTO integrations (id, user_id, service_name, api_key, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (user_id, service_name) DO UPDATE
		SET api_key = EXCLUDED.api_key, is_active = TRUE, updated_at = NOW()
		RETURNING ` + integrationColumns
	i, err := scanIntegration(r.DB.QueryRowContext(ctx, query, uuid.NewString(), userID, service, apiKey))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == activeServiceKeyIndex {
			return nil, appErrors.NewConflict("this %s API key is already in use by another account", service)
		}
		return nil, err
	}
	return i, nil
}

func (r *IntegrationRepository) Delete(ctx context.Context, userID string, service model.ServiceName) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM integrations WHERE user_id=$1 AND service_name=$2`, userID, service)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ IntegrationRepositoryInterface = (*IntegrationRepository)(nil)

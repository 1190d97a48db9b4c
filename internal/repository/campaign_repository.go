package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	CountByUser(ctx context.Context, userID string) (int, error)
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	GetOwned(ctx context.Context, id, userID string) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) error
	TransitionStatus(ctx context.Context, id string, from, to model.CampaignStatus) (bool, error)
	Rename(ctx context.Context, id, userID, name string) (*model.Campaign, error)
	Delete(ctx context.Context, id, userID string) error
	ListCampaigns(ctx context.Context, userID string, offset, limit int, status string) ([]*model.Campaign, int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, user_id, name, url, status, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.URL, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// validID keeps malformed ids from reaching the uuid column, where they would be a driver error
// instead of a plain not-found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = model.CampaignPending
	}
	query := `
		INSERT INTO campaigns (id, user_id, name, url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.DB.ExecContext(ctx, query, c.ID, c.UserID, c.Name, c.URL, c.Status, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *CampaignRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns WHERE user_id=$1`, userID).Scan(&n)
	return n, err
}

// UpdateStatus is an unconditional setter; callers own the transition rules.
func (r *CampaignRepository) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	if !validID(id) {
		return appErrors.NewCampaignNotFound(id)
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return appErrors.NewCampaignNotFound(id)
	}
	return nil
}

// TransitionStatus moves the campaign from one status to another only if it is still in from.
// It reports false, with no error, when the stored status no longer matches.
func (r *CampaignRepository) TransitionStatus(ctx context.Context, id string, from, to model.CampaignStatus) (bool, error) {
	if !validID(id) {
		return false, appErrors.NewCampaignNotFound(id)
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetByID is not scoped by owner; only the engine callback path uses it.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	if !validID(id) {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id=$1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

// GetOwned answers not-found for foreign campaigns exactly as for missing ones.
func (r *CampaignRepository) GetOwned(ctx context.Context, id, userID string) (*model.Campaign, error) {
	if !validID(id) {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	c, err := scanCampaign(r.DB.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id=$1 AND user_id=$2`, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) Rename(ctx context.Context, id, userID, name string) (*model.Campaign, error) {
	if !validID(id) {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	query := `
		UPDATE campaigns SET name=$1, updated_at=NOW()
		WHERE id=$2 AND user_id=$3
		RETURNING ` + campaignColumns
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, name, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

// Delete removes the campaign; contacts go with it through ON DELETE CASCADE.
func (r *CampaignRepository) Delete(ctx context.Context, id, userID string) error {
	if !validID(id) {
		return appErrors.NewCampaignNotFound(id)
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM campaigns WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewCampaignNotFound(id)
	}
	return nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, userID string, offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	where := ` WHERE user_id=$1`
	args := []interface{}{userID}
	argPos := 2

	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)

	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Count total
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)

package postgres

import (
	"context"
	"fmt"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AnalyticsRepository struct {
	db *pgxpool.Pool
}

func NewAnalyticsRepository(db *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// RecordClick stores a click event and bumps the link and workspace
// counters. Replaying an already stored click ID is a no-op.
func (r *AnalyticsRepository) RecordClick(ctx context.Context, click *domain.ClickEvent) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin click transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO click_events (
			click_id, link_id, workspace_id, domain, key, url, ip_address,
			referrer, user_agent, device_type, country, city, clicked_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, NULLIF($11, ''), NULLIF($12, ''), $13)
		ON CONFLICT (click_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, insert,
		click.ClickID,
		click.LinkID,
		click.WorkspaceID,
		click.Domain,
		click.Key,
		click.URL,
		click.IPAddress,
		click.Referrer,
		click.UserAgent,
		click.DeviceType,
		click.Country,
		click.City,
		click.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert click %s: %w", click.ClickID, err)
	}

	if tag.RowsAffected() == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	batch.Queue(`UPDATE links SET clicks = clicks + 1, last_clicked = $2 WHERE id = $1`, click.LinkID, click.Timestamp)
	batch.Queue(`UPDATE workspaces SET usage = usage + 1 WHERE id = $1`, click.WorkspaceID)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to update counters for click %s: %w", click.ClickID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit click %s: %w", click.ClickID, err)
	}

	return nil
}

// Record satisfies the click sink used by the recorder.
func (r *AnalyticsRepository) Record(ctx context.Context, click *domain.ClickEvent) error {
	return r.RecordClick(ctx, click)
}

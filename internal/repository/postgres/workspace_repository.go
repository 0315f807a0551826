package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/gamassss/click-tracker/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WorkspaceRepository struct {
	db *pgxpool.Pool
}

func NewWorkspaceRepository(db *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// GetAllowedHostnames returns the workspace's explicit allow-list and its
// verified custom domains.
func (r *WorkspaceRepository) GetAllowedHostnames(ctx context.Context, workspaceID string) (*domain.Workspace, error) {
	query := `
		SELECT
			w.id,
			w.allowed_hostnames,
			COALESCE(array_agg(d.slug ORDER BY d.slug) FILTER (WHERE d.verified), '{}')
		FROM workspaces w
		LEFT JOIN domains d ON d.workspace_id = w.id
		WHERE w.id = $1
		GROUP BY w.id
	`

	var ws domain.Workspace
	err := r.db.QueryRow(ctx, query, workspaceID).Scan(
		&ws.ID,
		&ws.AllowedHostnames,
		&ws.VerifiedDomains,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get allowed hostnames for workspace %s: %w", workspaceID, err)
	}

	return &ws, nil
}

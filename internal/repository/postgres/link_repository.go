package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/gamassss/click-tracker/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LinkRepository struct {
	db *pgxpool.Pool
}

func NewLinkRepository(db *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{db: db}
}

// GetByDomainKey loads a link together with its partner and the discount
// attached to the partner's program enrollment.
func (r *LinkRepository) GetByDomainKey(ctx context.Context, linkDomain, key string) (*domain.Link, error) {
	query := `
		SELECT
			l.id, l.domain, l.key, l.url, l.workspace_id, l.program_id, l.partner_id,
			l.archived, l.created_at, l.last_clicked,
			pa.id, pa.name, pa.image,
			d.id, d.amount, d.type, d.max_duration, d.coupon_id, d.coupon_test_id
		FROM links l
		LEFT JOIN program_enrollments pe
			ON pe.program_id = l.program_id AND pe.partner_id = l.partner_id
		LEFT JOIN programs p ON p.id = l.program_id
		LEFT JOIN partners pa ON pa.id = l.partner_id
		LEFT JOIN discounts d ON d.id = COALESCE(pe.discount_id, p.default_discount_id)
		WHERE l.domain = $1 AND l.key = $2
	`

	var (
		link domain.Link

		partnerID, partnerName, partnerImage *string

		discountID, discountType, couponID, couponTestID *string
		discountAmount                                   *float64
		maxDuration                                      *int
	)

	err := r.db.QueryRow(ctx, query, strings.ToLower(linkDomain), key).Scan(
		&link.ID,
		&link.Domain,
		&link.Key,
		&link.URL,
		&link.WorkspaceID,
		&link.ProgramID,
		&link.PartnerID,
		&link.Archived,
		&link.CreatedAt,
		&link.LastClicked,
		&partnerID,
		&partnerName,
		&partnerImage,
		&discountID,
		&discountAmount,
		&discountType,
		&maxDuration,
		&couponID,
		&couponTestID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link %s/%s: %w", linkDomain, key, err)
	}

	if !link.IsPartnerLink() || partnerID == nil {
		return &link, nil
	}

	link.Partner = &domain.Partner{
		ID:    *partnerID,
		Name:  derefString(partnerName),
		Image: partnerImage,
	}

	if discountID != nil {
		link.Discount = &domain.Discount{
			ID:           *discountID,
			Amount:       derefFloat(discountAmount),
			Type:         derefString(discountType),
			MaxDuration:  maxDuration,
			CouponID:     couponID,
			CouponTestID: couponTestID,
		}
	}

	return &link, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

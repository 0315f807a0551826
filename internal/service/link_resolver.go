package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/gamassss/click-tracker/internal/logger"
	"github.com/gamassss/click-tracker/internal/repository"
	"github.com/gamassss/click-tracker/pkg/apperror"
)

type LinkResolver struct {
	links   LinkRepository
	cache   LinkCache
	runner  Dispatcher
	ttl     time.Duration
	timeout time.Duration
}

func NewLinkResolver(links LinkRepository, cache LinkCache, runner Dispatcher, ttl, lookupTimeout time.Duration) *LinkResolver {
	if lookupTimeout <= 0 {
		lookupTimeout = 2 * time.Second
	}
	return &LinkResolver{
		links:   links,
		cache:   cache,
		runner:  runner,
		ttl:     ttl,
		timeout: lookupTimeout,
	}
}

// Resolve reads the link from cache, falling back to the durable store.
func (r *LinkResolver) Resolve(ctx context.Context, linkDomain, key string) (*domain.Link, error) {
	cached, err := r.cache.GetLink(ctx, linkDomain, key)
	if err != nil {
		logger.FromContext(ctx).Warn("Link cache read failed, falling back to database",
			"domain", linkDomain,
			"key", key,
			"error", err,
		)
	}

	return r.ResolveWith(ctx, linkDomain, key, cached)
}

// ResolveWith resolves using a cache entry the caller already fetched. A nil
// entry is a cache miss.
func (r *LinkResolver) ResolveWith(ctx context.Context, linkDomain, key string, cached *domain.CachedLink) (*domain.Link, error) {
	var link *domain.Link

	if cached != nil {
		normalized, err := NormalizeCachedLink(cached)
		if err != nil {
			logger.FromContext(ctx).Warn("Discarding unreadable cached link",
				"domain", linkDomain,
				"key", key,
				"error", err,
			)
		} else {
			link = normalized
		}
	}

	if link == nil {
		loaded, err := r.load(ctx, linkDomain, key)
		if err != nil {
			return nil, err
		}
		link = loaded
	}

	if link.WorkspaceID == nil || *link.WorkspaceID == "" {
		return nil, apperror.NotFound("Link does not belong to a workspace.")
	}

	return link, nil
}

func (r *LinkResolver) load(ctx context.Context, linkDomain, key string) (*domain.Link, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	link, err := r.links.GetByDomainKey(lookupCtx, strings.ToLower(linkDomain), key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Link not found for domain: %s and key: %s.", linkDomain, key)
		}
		return nil, apperror.Internal(err, "Failed to load link.")
	}

	if err := r.runner.Go(ctx, "warm link cache", func(ctx context.Context) error {
		return r.cache.SetLink(ctx, link, r.ttl)
	}); err != nil {
		logger.FromContext(ctx).Warn("Skipped link cache warm", "link_id", link.ID, "error", err)
	}

	return link, nil
}

// NormalizeCachedLink converts a cache record into a Link. Partner and
// discount payloads written by older releases omit the coupon fields; they
// decode to the canonical shape with those fields nil. Partner metadata is
// dropped for links that are not partner links.
func NormalizeCachedLink(cached *domain.CachedLink) (*domain.Link, error) {
	link := &domain.Link{
		ID:          cached.ID,
		Domain:      cached.Domain,
		Key:         cached.Key,
		URL:         cached.URL,
		WorkspaceID: cached.WorkspaceID,
		PartnerID:   cached.PartnerID,
		ProgramID:   cached.ProgramID,
		Archived:    cached.Archived,
		CreatedAt:   cached.CreatedAt,
	}

	if !link.IsPartnerLink() {
		return link, nil
	}

	if !isJSONNull(cached.Partner) {
		var partner domain.Partner
		if err := json.Unmarshal(cached.Partner, &partner); err != nil {
			return nil, fmt.Errorf("invalid cached partner: %w", err)
		}
		link.Partner = &partner
	}

	if !isJSONNull(cached.Discount) {
		discount, err := decodeDiscount(cached.Discount)
		if err != nil {
			return nil, err
		}
		link.Discount = discount
	}

	return link, nil
}

// legacyDiscount accepts the amount as either a number or a numeric string,
// both of which have been written to the cache.
type legacyDiscount struct {
	ID           string      `json:"id"`
	Amount       json.Number `json:"amount"`
	Type         string      `json:"type"`
	MaxDuration  *int        `json:"maxDuration"`
	CouponID     *string     `json:"couponId"`
	CouponTestID *string     `json:"couponTestId"`
}

func decodeDiscount(raw json.RawMessage) (*domain.Discount, error) {
	var d legacyDiscount
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("invalid cached discount: %w", err)
	}

	var amount float64
	if d.Amount != "" {
		f, err := d.Amount.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid cached discount amount %q: %w", d.Amount, err)
		}
		amount = f
	}

	return &domain.Discount{
		ID:           d.ID,
		Amount:       amount,
		Type:         d.Type,
		MaxDuration:  d.MaxDuration,
		CouponID:     d.CouponID,
		CouponTestID: d.CouponTestID,
	}, nil
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

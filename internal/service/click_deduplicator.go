package service

import (
	"context"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/gamassss/click-tracker/internal/logger"
	"github.com/gamassss/click-tracker/pkg/apperror"
	"github.com/gamassss/click-tracker/pkg/generator"
)

// ClickDecision is the outcome of a dedup lookup. Fresh is true when the
// click ID was minted for this request and the click still has to be
// recorded.
type ClickDecision struct {
	ClickID string
	Fresh   bool
}

type ClickDeduplicator struct {
	cache      LinkCache
	generateID func() (string, error)
}

func NewClickDeduplicator(cache LinkCache) *ClickDeduplicator {
	return &ClickDeduplicator{
		cache:      cache,
		generateID: generator.GenerateClickID,
	}
}

// Lookup reads the dedup entry for (domain, key, ip) together with the cached
// link in a single round trip. The cached link is returned for the resolver;
// it is nil on a miss. A cache failure is treated as a miss on both keys.
func (d *ClickDeduplicator) Lookup(ctx context.Context, linkDomain, key, ip string) (ClickDecision, *domain.CachedLink, error) {
	clickID, cached, err := d.cache.Lookup(ctx, linkDomain, key, ip)
	if err != nil {
		logger.FromContext(ctx).Warn("Click cache lookup failed",
			"domain", linkDomain,
			"key", key,
			"error", err,
		)
		cached = nil
	}

	if clickID != "" {
		return ClickDecision{ClickID: clickID}, cached, nil
	}

	newID, err := d.generateID()
	if err != nil {
		return ClickDecision{}, nil, apperror.Internal(err, "Failed to generate click ID.")
	}

	return ClickDecision{ClickID: newID, Fresh: true}, cached, nil
}

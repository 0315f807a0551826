package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLinkResolver_ResolveMissThenHit(t *testing.T) {
	f := newFixture(t)
	resolver := NewLinkResolver(f.links, f.linkCache, f.runner, 24*time.Hour, 2*time.Second)
	ctx := context.Background()

	f.links.On("GetByDomainKey", mock.Anything, "dub.sh", "abc123").Return(testLink(), nil).Once()

	link, err := resolver.Resolve(ctx, "DUB.SH", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "link_1", link.ID)

	f.runner.Wait()
	assert.Equal(t, 24*time.Hour, f.mr.TTL("linkcache:dub.sh:abc123"))

	link, err = resolver.Resolve(ctx, "dub.sh", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.URL)

	f.links.AssertExpectations(t)
}

func TestLinkResolver_CorruptCacheFallsBack(t *testing.T) {
	f := newFixture(t)
	resolver := NewLinkResolver(f.links, f.linkCache, f.runner, time.Hour, 2*time.Second)

	require.NoError(t, f.mr.Set("linkcache:dub.sh:abc123", "{broken"))
	f.links.On("GetByDomainKey", mock.Anything, "dub.sh", "abc123").Return(testLink(), nil).Once()

	link, err := resolver.Resolve(context.Background(), "dub.sh", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "link_1", link.ID)

	f.runner.Wait()
	f.links.AssertExpectations(t)
}

func TestLinkResolver_SlowStoreTimesOut(t *testing.T) {
	f := newFixture(t)
	resolver := NewLinkResolver(f.links, f.linkCache, f.runner, time.Hour, 50*time.Millisecond)

	f.links.On("GetByDomainKey", mock.Anything, "dub.sh", "abc123").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()

	start := time.Now()
	link, err := resolver.Resolve(context.Background(), "dub.sh", "abc123")

	assert.Nil(t, link)
	assertAppError(t, err, http.StatusInternalServerError)
	assert.Less(t, time.Since(start), time.Second)
	f.links.AssertExpectations(t)
}

func TestNormalizeCachedLink(t *testing.T) {
	base := func() *domain.CachedLink {
		return &domain.CachedLink{
			ID:          "link_2",
			Domain:      "dub.sh",
			Key:         "partner",
			URL:         "https://acme.com",
			WorkspaceID: strPtr("ws_1"),
			ProgramID:   strPtr("prog_1"),
			PartnerID:   strPtr("pn_1"),
			Partner:     json.RawMessage(`{"id":"pn_1","name":"Jane"}`),
		}
	}

	t.Run("full shape", func(t *testing.T) {
		cached := base()
		cached.Discount = json.RawMessage(`{"id":"d","amount":10,"type":"flat","maxDuration":null,"couponId":"C1","couponTestId":"T1"}`)

		link, err := NormalizeCachedLink(cached)
		require.NoError(t, err)
		require.NotNil(t, link.Discount)
		assert.Equal(t, 10.0, link.Discount.Amount)
		assert.Equal(t, "C1", *link.Discount.CouponID)
		assert.Equal(t, "T1", *link.Discount.CouponTestID)
	})

	t.Run("legacy shape gets explicit nulls", func(t *testing.T) {
		cached := base()
		cached.Discount = json.RawMessage(`{"id":"d","amount":10,"type":"flat"}`)

		link, err := NormalizeCachedLink(cached)
		require.NoError(t, err)

		out, err := json.Marshal(link.Discount)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"d","amount":10,"type":"flat","maxDuration":null,"couponId":null,"couponTestId":null}`, string(out))
	})

	t.Run("absent discount", func(t *testing.T) {
		cached := base()
		cached.Discount = json.RawMessage(`null`)

		link, err := NormalizeCachedLink(cached)
		require.NoError(t, err)
		assert.NotNil(t, link.Partner)
		assert.Nil(t, link.Discount)
	})

	t.Run("non partner link drops metadata", func(t *testing.T) {
		cached := base()
		cached.ProgramID = nil
		cached.Discount = json.RawMessage(`{"id":"d","amount":10,"type":"flat"}`)

		link, err := NormalizeCachedLink(cached)
		require.NoError(t, err)
		assert.Nil(t, link.Partner)
		assert.Nil(t, link.Discount)
	})

	t.Run("bad amount", func(t *testing.T) {
		cached := base()
		cached.Discount = json.RawMessage(`{"id":"d","amount":"ten","type":"flat"}`)

		_, err := NormalizeCachedLink(cached)
		assert.Error(t, err)
	})
}

func TestClickDeduplicator_Lookup(t *testing.T) {
	f := newFixture(t)
	dedup := NewClickDeduplicator(f.linkCache)
	ctx := context.Background()

	decision, cached, err := dedup.Lookup(ctx, "dub.sh", "abc123", "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, decision.Fresh)
	assert.Regexp(t, clickIDPattern, decision.ClickID)
	assert.Nil(t, cached)

	require.NoError(t, f.mr.Set("recordClick:dub.sh:abc123:1.2.3.4", decision.ClickID))

	again, _, err := dedup.Lookup(ctx, "dub.sh", "abc123", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, again.Fresh)
	assert.Equal(t, decision.ClickID, again.ClickID)
}

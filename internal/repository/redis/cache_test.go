package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func strPtr(s string) *string { return &s }

func TestLinkCache_LookupMiss(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewLinkCache(client)

	clickID, cached, err := cache.Lookup(context.Background(), "dub.sh", "abc123", "1.2.3.4")
	require.NoError(t, err)
	assert.Empty(t, clickID)
	assert.Nil(t, cached)
}

func TestLinkCache_SetLinkAndLookup(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewLinkCache(client)
	ctx := context.Background()

	link := &domain.Link{
		ID:          "link_1",
		Domain:      "dub.sh",
		Key:         "abc123",
		URL:         "https://example.com",
		WorkspaceID: strPtr("ws_1"),
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, cache.SetLink(ctx, link, 24*time.Hour))
	require.NoError(t, cache.SetClickID(ctx, "dub.sh", "abc123", "1.2.3.4", "aBcDeFgHiJkLmNoP", time.Hour))

	assert.Equal(t, 24*time.Hour, mr.TTL("linkcache:dub.sh:abc123"))
	assert.Equal(t, time.Hour, mr.TTL("recordClick:dub.sh:abc123:1.2.3.4"))

	clickID, cached, err := cache.Lookup(ctx, "DUB.SH", "abc123", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "aBcDeFgHiJkLmNoP", clickID)
	require.NotNil(t, cached)
	assert.Equal(t, "link_1", cached.ID)
	assert.Equal(t, "ws_1", *cached.WorkspaceID)
	assert.True(t, link.CreatedAt.Equal(cached.CreatedAt))

	clickID, _, err = cache.Lookup(ctx, "dub.sh", "abc123", "5.6.7.8")
	require.NoError(t, err)
	assert.Empty(t, clickID, "dedup entries are per IP")
}

func TestLinkCache_LookupCorruptLink(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewLinkCache(client)

	require.NoError(t, mr.Set("linkcache:dub.sh:abc123", "{not json"))
	require.NoError(t, mr.Set("recordClick:dub.sh:abc123:1.2.3.4", "clickid"))

	clickID, cached, err := cache.Lookup(context.Background(), "dub.sh", "abc123", "1.2.3.4")
	assert.Error(t, err)
	assert.Equal(t, "clickid", clickID)
	assert.Nil(t, cached)
}

func TestLinkCache_DeleteLink(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewLinkCache(client)
	ctx := context.Background()

	link := &domain.Link{ID: "link_1", Domain: "dub.sh", Key: "abc123", URL: "https://example.com"}
	require.NoError(t, cache.SetLink(ctx, link, time.Hour))
	require.True(t, mr.Exists("linkcache:dub.sh:abc123"))

	require.NoError(t, cache.DeleteLink(ctx, "dub.sh", "abc123"))
	assert.False(t, mr.Exists("linkcache:dub.sh:abc123"))

	cached, err := cache.GetLink(ctx, "dub.sh", "abc123")
	assert.NoError(t, err)
	assert.Nil(t, cached)
}

func TestLinkCache_PartnerPayloadRoundTrip(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewLinkCache(client)
	ctx := context.Background()

	link := &domain.Link{
		ID:          "link_2",
		Domain:      "dub.sh",
		Key:         "partner",
		URL:         "https://acme.com",
		WorkspaceID: strPtr("ws_1"),
		ProgramID:   strPtr("prog_1"),
		PartnerID:   strPtr("pn_1"),
		Partner:     &domain.Partner{ID: "pn_1", Name: "Jane"},
		Discount:    &domain.Discount{ID: "disc_1", Amount: 10, Type: "flat"},
	}
	require.NoError(t, cache.SetLink(ctx, link, time.Hour))

	cached, err := cache.GetLink(ctx, "dub.sh", "partner")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.JSONEq(t, `{"id":"pn_1","name":"Jane","image":null}`, string(cached.Partner))
	assert.Contains(t, string(cached.Discount), `"couponId":null`)
}

func TestHostnameCache(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewHostnameCache(client)
	ctx := context.Background()

	hostnames, found, err := cache.GetAllowedHostnames(ctx, "ws_1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, hostnames)

	require.NoError(t, cache.SetAllowedHostnames(ctx, "ws_1", []string{"acme.com", "*.acme.dev"}, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("allowedHostnames:ws_1"))

	hostnames, found, err = cache.GetAllowedHostnames(ctx, "ws_1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"acme.com", "*.acme.dev"}, hostnames)

	require.NoError(t, cache.SetAllowedHostnames(ctx, "ws_2", nil, time.Hour))
	hostnames, found, err = cache.GetAllowedHostnames(ctx, "ws_2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, hostnames)

	mr.FastForward(2 * time.Hour)
	_, found, err = cache.GetAllowedHostnames(ctx, "ws_1")
	require.NoError(t, err)
	assert.False(t, found)
}

package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gamassss/click-tracker/internal/logger"
	"github.com/gamassss/click-tracker/pkg/apperror"
	"github.com/gamassss/click-tracker/pkg/response"
	"github.com/gin-gonic/gin"
)

type LinkInvalidator interface {
	DeleteLink(ctx context.Context, linkDomain, key string) error
}

// CacheHandler lets the link management side evict a link after it changes.
type CacheHandler struct {
	cache LinkInvalidator
	token string
}

func NewCacheHandler(cache LinkInvalidator, token string) *CacheHandler {
	return &CacheHandler{cache: cache, token: token}
}

func (h *CacheHandler) DeleteLink(c *gin.Context) {
	if h.token == "" {
		response.NotFound(c, "Not found.")
		return
	}

	if !h.authorized(c.GetHeader("Authorization")) {
		response.Error(c, apperror.Unauthorized("Missing or invalid token."))
		return
	}

	linkDomain := strings.ToLower(c.Param("domain"))
	key := c.Param("key")

	if err := h.cache.DeleteLink(c.Request.Context(), linkDomain, key); err != nil {
		response.Error(c, apperror.Internal(err, "Failed to invalidate link cache."))
		return
	}

	logger.FromContext(c.Request.Context()).Info("Link cache invalidated", "domain", linkDomain, "key", key)
	c.Status(http.StatusNoContent)
}

func (h *CacheHandler) authorized(header string) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) == 1
}

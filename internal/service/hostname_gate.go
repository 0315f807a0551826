package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/gamassss/click-tracker/internal/logger"
	"github.com/gamassss/click-tracker/internal/repository"
	"github.com/gamassss/click-tracker/pkg/apperror"
)

type GateConfig struct {
	TTL         time.Duration
	Timeout     time.Duration
	SettingsURL string
}

// HostnameGate rejects first clicks coming from origins a workspace has not
// allowed.
type HostnameGate struct {
	workspaces WorkspaceRepository
	cache      HostnameCache
	runner     Dispatcher
	cfg        GateConfig
}

func NewHostnameGate(workspaces WorkspaceRepository, cache HostnameCache, runner Dispatcher, cfg GateConfig) *HostnameGate {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &HostnameGate{
		workspaces: workspaces,
		cache:      cache,
		runner:     runner,
		cfg:        cfg,
	}
}

// Check returns a forbidden error unless the request's referer (or origin)
// host is on the workspace allow-list. Lookup failures deny.
func (g *HostnameGate) Check(ctx context.Context, workspaceID string, meta domain.RequestMeta) error {
	host := SourceHostname(meta.Referer, meta.Origin)

	allowed, err := g.allowedHostnames(ctx, workspaceID)
	if err != nil {
		logger.FromContext(ctx).Warn("Allowed hostnames unavailable, denying click",
			"workspace_id", workspaceID,
			"error", err,
		)
		return g.deny(host)
	}

	if host == "" || !HostnameAllowed(host, allowed) {
		return g.deny(host)
	}

	return nil
}

func (g *HostnameGate) deny(host string) error {
	if host == "" {
		host = "unknown"
	}
	return apperror.Forbidden(
		"Request origin '%s' is not included in the allowed hostnames for this workspace. Update your allowed hostnames here: %s",
		host, g.cfg.SettingsURL,
	)
}

func (g *HostnameGate) allowedHostnames(ctx context.Context, workspaceID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	hostnames, found, err := g.cache.GetAllowedHostnames(ctx, workspaceID)
	if err != nil {
		logger.FromContext(ctx).Warn("Allowed hostnames cache read failed", "workspace_id", workspaceID, "error", err)
	} else if found {
		return hostnames, nil
	}

	ws, err := g.workspaces.GetAllowedHostnames(ctx, workspaceID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		hostnames = []string{}
	case err != nil:
		return nil, err
	default:
		hostnames = ws.Hostnames()
	}

	if err := g.runner.Go(ctx, "cache allowed hostnames", func(ctx context.Context) error {
		return g.cache.SetAllowedHostnames(ctx, workspaceID, hostnames, g.cfg.TTL)
	}); err != nil {
		logger.FromContext(ctx).Warn("Skipped allowed hostnames cache write", "workspace_id", workspaceID, "error", err)
	}

	return hostnames, nil
}

// SourceHostname extracts the lower-cased host of the referer, or of the
// origin when no referer is sent, without a leading "www.".
func SourceHostname(referer, origin string) string {
	source := strings.TrimSpace(referer)
	if source == "" {
		source = strings.TrimSpace(origin)
	}
	if source == "" || source == "null" {
		return ""
	}

	if !strings.Contains(source, "://") {
		source = "https://" + source
	}

	u, err := url.Parse(source)
	if err != nil {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// HostnameAllowed matches host against allow-list entries. An entry of the
// form "*.example.com" matches example.com and any of its subdomains. A
// leading "www." is ignored on both sides, as it is for the request source.
func HostnameAllowed(host string, allowed []string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")

	for _, entry := range allowed {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}

		if suffix, ok := strings.CutPrefix(entry, "*."); ok {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}

		if host == strings.TrimPrefix(entry, "www.") {
			return true
		}
	}

	return false
}

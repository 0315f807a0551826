package service

import (
	"context"
	"time"

	"github.com/gamassss/click-tracker/internal/domain"
)

type LinkRepository interface {
	GetByDomainKey(ctx context.Context, linkDomain, key string) (*domain.Link, error)
}

type WorkspaceRepository interface {
	GetAllowedHostnames(ctx context.Context, workspaceID string) (*domain.Workspace, error)
}

type LinkCache interface {
	Lookup(ctx context.Context, linkDomain, key, ip string) (string, *domain.CachedLink, error)
	GetLink(ctx context.Context, linkDomain, key string) (*domain.CachedLink, error)
	SetLink(ctx context.Context, link *domain.Link, ttl time.Duration) error
	SetClickID(ctx context.Context, linkDomain, key, ip, clickID string, ttl time.Duration) error
}

type HostnameCache interface {
	GetAllowedHostnames(ctx context.Context, workspaceID string) ([]string, bool, error)
	SetAllowedHostnames(ctx context.Context, workspaceID string, hostnames []string, ttl time.Duration) error
}

// ClickSink is the analytics store a recorded click is written to.
type ClickSink interface {
	Record(ctx context.Context, click *domain.ClickEvent) error
}

// Dispatcher runs work detached from the calling request.
type Dispatcher interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/gamassss/click-tracker/internal/logger"
	"github.com/gamassss/click-tracker/pkg/detector"
)

type TrackService struct {
	resolver *LinkResolver
	dedup    *ClickDeduplicator
	gate     *HostnameGate
	recorder *ClickRecorder
}

func NewTrackService(resolver *LinkResolver, dedup *ClickDeduplicator, gate *HostnameGate, recorder *ClickRecorder) *TrackService {
	return &TrackService{
		resolver: resolver,
		dedup:    dedup,
		gate:     gate,
		recorder: recorder,
	}
}

// TrackClick returns the click ID for a visit and schedules the click to be
// recorded the first time (domain, key, ip) is seen inside the dedup window.
// Repeat clicks skip the hostname gate and are not recorded again.
func (s *TrackService) TrackClick(ctx context.Context, req *domain.TrackClickRequest, meta domain.RequestMeta) (*domain.TrackClickResponse, error) {
	decision, cached, err := s.dedup.Lookup(ctx, req.Domain, req.Key, meta.IP)
	if err != nil {
		return nil, err
	}

	link, err := s.resolver.ResolveWith(ctx, req.Domain, req.Key, cached)
	if err != nil {
		return nil, err
	}

	if decision.Fresh {
		if err := s.gate.Check(ctx, *link.WorkspaceID, meta); err != nil {
			return nil, err
		}

		click := newClickEvent(decision.ClickID, link, req, meta)
		if err := s.recorder.Dispatch(ctx, click, true); err != nil {
			logger.FromContext(ctx).Warn("Click not scheduled for recording",
				"click_id", click.ClickID,
				"link_id", click.LinkID,
				"error", err,
			)
		}
	}

	resp := &domain.TrackClickResponse{ClickID: decision.ClickID}
	if link.IsPartnerLink() {
		resp.Partner = link.Partner
		resp.Discount = link.Discount
	}

	return resp, nil
}

func newClickEvent(clickID string, link *domain.Link, req *domain.TrackClickRequest, meta domain.RequestMeta) *domain.ClickEvent {
	target := link.URL
	if req.URL != "" {
		target = req.URL
	}

	referrer := req.Referrer
	if referrer == "" {
		referrer = meta.Referer
	}

	return &domain.ClickEvent{
		ClickID:     clickID,
		LinkID:      link.ID,
		WorkspaceID: *link.WorkspaceID,
		Domain:      strings.ToLower(req.Domain),
		Key:         req.Key,
		URL:         target,
		IPAddress:   meta.IP,
		Referrer:    referrer,
		UserAgent:   meta.UserAgent,
		DeviceType:  detector.DetectDeviceType(meta.UserAgent),
		Country:     meta.Country,
		City:        meta.City,
		Timestamp:   time.Now().UTC(),
	}
}

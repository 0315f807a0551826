package handler

import (
	"context"

	"github.com/gamassss/click-tracker/internal/domain"
	"github.com/gamassss/click-tracker/pkg/detector"
	"github.com/gamassss/click-tracker/pkg/response"
	"github.com/gamassss/click-tracker/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ClickTracker interface {
	TrackClick(ctx context.Context, req *domain.TrackClickRequest, meta domain.RequestMeta) (*domain.TrackClickResponse, error)
}

type TrackHandler struct {
	tracker     ClickTracker
	production  bool
	devClientIP string
}

// NewTrackHandler builds the click handler. Outside production every request
// is attributed to devClientIP so local dedup behaves predictably.
func NewTrackHandler(tracker ClickTracker, production bool, devClientIP string) *TrackHandler {
	return &TrackHandler{
		tracker:     tracker,
		production:  production,
		devClientIP: devClientIP,
	}
}

func (h *TrackHandler) TrackClick(c *gin.Context) {
	var req domain.TrackClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid JSON body.")
		return
	}

	if errs := validator.Validate(&req); len(errs) > 0 {
		response.ValidationErrors(c, errs)
		return
	}

	resp, err := h.tracker.TrackClick(c.Request.Context(), &req, h.requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, resp)
}

func (h *TrackHandler) requestMeta(c *gin.Context) domain.RequestMeta {
	r := c.Request

	ip := h.devClientIP
	if h.production {
		ip = detector.GetClientIP(r.RemoteAddr, r.Header.Get("X-Forwarded-For"), r.Header.Get("X-Real-IP"))
	}

	country, city := detector.Geo(r.Header)

	return domain.RequestMeta{
		IP:        ip,
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		Origin:    r.Header.Get("Origin"),
		Country:   country,
		City:      city,
	}
}

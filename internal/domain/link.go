package domain

import (
	"encoding/json"
	"time"
)

type Link struct {
	ID          string     `json:"id"`
	Domain      string     `json:"domain"`
	Key         string     `json:"key"`
	URL         string     `json:"url"`
	WorkspaceID *string    `json:"projectId"`
	PartnerID   *string    `json:"partnerId,omitempty"`
	ProgramID   *string    `json:"programId,omitempty"`
	Archived    bool       `json:"archived"`
	CreatedAt   time.Time  `json:"createdAt"`
	Partner     *Partner   `json:"partner,omitempty"`
	Discount    *Discount  `json:"discount,omitempty"`
	LastClicked *time.Time `json:"-"`
}

// IsPartnerLink reports whether partner metadata may be exposed for the link.
func (l *Link) IsPartnerLink() bool {
	return l.ProgramID != nil && *l.ProgramID != "" && l.PartnerID != nil && *l.PartnerID != ""
}

type Partner struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

// Discount is the canonical discount shape. Coupon fields are always
// serialized, null when unset.
type Discount struct {
	ID           string  `json:"id"`
	Amount       float64 `json:"amount"`
	Type         string  `json:"type"`
	MaxDuration  *int    `json:"maxDuration"`
	CouponID     *string `json:"couponId"`
	CouponTestID *string `json:"couponTestId"`
}

// CachedLink is the record stored under the link cache key. Partner and
// discount are kept raw so older entries can be normalized on read.
type CachedLink struct {
	ID          string          `json:"id"`
	Domain      string          `json:"domain"`
	Key         string          `json:"key"`
	URL         string          `json:"url"`
	WorkspaceID *string         `json:"projectId"`
	PartnerID   *string         `json:"partnerId,omitempty"`
	ProgramID   *string         `json:"programId,omitempty"`
	Archived    bool            `json:"archived,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	Partner     json.RawMessage `json:"partner,omitempty"`
	Discount    json.RawMessage `json:"discount,omitempty"`
}

func NewCachedLink(link *Link) (*CachedLink, error) {
	cached := &CachedLink{
		ID:          link.ID,
		Domain:      link.Domain,
		Key:         link.Key,
		URL:         link.URL,
		WorkspaceID: link.WorkspaceID,
		PartnerID:   link.PartnerID,
		ProgramID:   link.ProgramID,
		Archived:    link.Archived,
		CreatedAt:   link.CreatedAt,
	}

	if link.Partner != nil {
		raw, err := json.Marshal(link.Partner)
		if err != nil {
			return nil, err
		}
		cached.Partner = raw
	}

	if link.Discount != nil {
		raw, err := json.Marshal(link.Discount)
		if err != nil {
			return nil, err
		}
		cached.Discount = raw
	}

	return cached, nil
}

package domain

import "time"

type ClickEvent struct {
	ClickID     string    `json:"click_id"`
	LinkID      string    `json:"link_id"`
	WorkspaceID string    `json:"workspace_id"`
	Domain      string    `json:"domain"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	IPAddress   string    `json:"ip_address"`
	Referrer    string    `json:"referrer,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	DeviceType  string    `json:"device_type"`
	Country     string    `json:"country,omitempty"`
	City        string    `json:"city,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// RequestMeta is captured from the inbound request before the response is
// written, since background work must not touch the request afterwards.
type RequestMeta struct {
	IP        string
	UserAgent string
	Referer   string
	Origin    string
	Country   string
	City      string
}

type TrackClickRequest struct {
	Domain   string `json:"domain" validate:"required,nospace,max=190"`
	Key      string `json:"key" validate:"required,max=190"`
	URL      string `json:"url,omitempty" validate:"omitempty,url"`
	Referrer string `json:"referrer,omitempty"`
}

type TrackClickResponse struct {
	ClickID  string    `json:"clickId"`
	Partner  *Partner  `json:"partner"`
	Discount *Discount `json:"discount"`
}

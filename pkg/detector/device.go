package detector

import (
	"net/http"
	"net/url"
	"strings"
)

var botKeywords = []string{"bot", "crawler", "spider", "scraper", "curl", "wget", "headless", "preview"}

func DetectDeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)

	if IsBot(ua) {
		return "bot"
	}

	mobileKeywords := []string{"mobile", "android", "iphone", "ipod", "blackberry", "windows phone"}
	for _, keyword := range mobileKeywords {
		if strings.Contains(ua, keyword) {
			return "mobile"
		}
	}

	tabletKeywords := []string{"tablet", "ipad"}
	for _, keyword := range tabletKeywords {
		if strings.Contains(ua, keyword) {
			return "tablet"
		}
	}

	if strings.Contains(ua, "mozilla") || strings.Contains(ua, "windows") || strings.Contains(ua, "macintosh") {
		return "desktop"
	}

	return "unknown"
}

func IsBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, keyword := range botKeywords {
		if strings.Contains(ua, keyword) {
			return true
		}
	}
	return false
}

func GetClientIP(remoteAddr, xForwardedFor, xRealIP string) string {
	if xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}

	if xRealIP != "" {
		return xRealIP
	}

	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		return strings.Trim(remoteAddr[:idx], "[]")
	}

	return remoteAddr
}

// Geo reads the country and city set by the edge network in front of us.
func Geo(h http.Header) (country, city string) {
	country = h.Get("X-Vercel-IP-Country")
	if country == "" {
		country = h.Get("CF-IPCountry")
	}

	city = h.Get("X-Vercel-IP-City")
	if decoded, err := url.QueryUnescape(city); err == nil {
		city = decoded
	}

	return strings.ToUpper(country), city
}

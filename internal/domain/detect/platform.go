package detect

import "strings"

// Platform is the coarse OS family used to pick an external-open strategy.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformOther   Platform = "other"
)

// PlatformOf infers the platform from a User-Agent string.
func PlatformOf(userAgent string) Platform {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "android"):
		return PlatformAndroid
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ipod"):
		return PlatformIOS
	default:
		return PlatformOther
	}
}

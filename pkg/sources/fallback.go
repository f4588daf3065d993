package sources

import (
	"net/url"
	"strings"
)

// FallbackFunc returns the alternate URL for a primary image URL, or ""
// when there is none.
type FallbackFunc func(primary string) string

// FallbackHost serves images from a mirror by replacing the scheme and host
// of the primary URL with those of base, keeping the path. An empty base
// disables fallback.
func FallbackHost(base string) FallbackFunc {
	mirror, err := url.Parse(strings.TrimRight(base, "/"))
	if base == "" || err != nil || mirror.Host == "" {
		return nil
	}
	return func(primary string) string {
		u, err := url.Parse(primary)
		if err != nil || u.Host == "" || u.Host == mirror.Host {
			return ""
		}
		u.Scheme = mirror.Scheme
		u.Host = mirror.Host
		u.Path = mirror.Path + u.Path
		return u.String()
	}
}

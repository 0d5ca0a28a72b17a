package intercept

import (
	"net/http"
	"strings"
	"time"
)

// ContinueCookie marks a visitor who already went through the guarded
// redirect. While it is present the policy stops sending that visitor to
// the interstitial.
const ContinueCookie = "inappgate_continue"

// DefaultContinueTTL is the lifetime of the continue marker.
const DefaultContinueTTL = 30 * time.Minute

// Continued reports whether r carries the continue marker.
func Continued(r *http.Request) bool {
	c, err := r.Cookie(ContinueCookie)
	return err == nil && c.Value == "1"
}

// MarkContinued sets the continue marker on w. The cookie is host-only,
// HttpOnly and SameSite=Lax; it is Secure when the request origin is https.
func MarkContinued(w http.ResponseWriter, r *http.Request, proxies *Proxies, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultContinueTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ContinueCookie,
		Value:    "1",
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		Secure:   strings.HasPrefix(Origin(r, proxies), "https://"),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

package middleware

import (
	"net/http"
	"time"

	"github.com/dukerupert/kidsched/internal/viewer"
)

// ViewerCookieName is the cookie that carries the viewer id.
const ViewerCookieName = "kidsched_viewer"

const viewerCookieMaxAge = 365 * 24 * time.Hour

// Viewer reads the viewer cookie and populates the viewer context, issuing a
// new id when the cookie is missing or malformed.
func Viewer(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := viewer.Viewer{}
			if cookie, err := r.Cookie(ViewerCookieName); err == nil && viewer.Valid(cookie.Value) {
				v.ID = cookie.Value
			} else {
				v.ID = viewer.NewID()
				v.New = true
				http.SetCookie(w, &http.Cookie{
					Name:     ViewerCookieName,
					Value:    v.ID,
					Path:     "/",
					MaxAge:   int(viewerCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := viewer.WithViewer(r.Context(), v)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewerKey keys rate limiting by viewer, falling back to the client IP.
func ViewerKey(r *http.Request) string {
	if id := viewer.ID(r.Context()); id != "" {
		return "viewer:" + id
	}
	return "ip:" + RealIP(r)
}

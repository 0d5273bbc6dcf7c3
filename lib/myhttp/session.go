package myhttp

import (
	"net/http"

	"github.com/MarcGrol/sheetmusicshop/lib/mycontext"
	"github.com/MarcGrol/sheetmusicshop/lib/myuuid"
)

const sessionMaxAge = 365 * 24 * 60 * 60

// SessionMiddleware makes sure every browser carries a session key. The session key
// identifies the cart and the checkout of that browser.
func SessionMiddleware(uuider myuuid.UUIDer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(mycontext.SessionCookieName)
			if err != nil || cookie.Value == "" {
				cookie = &http.Cookie{
					Name:     mycontext.SessionCookieName,
					Value:    uuider.Create(),
					Path:     "/",
					MaxAge:   sessionMaxAge,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				}
				http.SetCookie(w, cookie)
				r.AddCookie(cookie)
			}
			next.ServeHTTP(w, r)
		})
	}
}

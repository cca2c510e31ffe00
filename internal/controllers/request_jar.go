package controllers

import (
	"net/http"
	"time"
)

// requestJar adapts one HTTP exchange to the identity.CookieJar contract.
// Reads come from the request's Cookie header; writes become Set-Cookie
// response headers and are echoed into a local map so the accessor's
// read-back confirmation sees them within the same exchange.
type requestJar struct {
	r       *http.Request
	w       http.ResponseWriter
	local   map[string]string
	enabled bool
}

func newRequestJar(w http.ResponseWriter, r *http.Request, enabled bool) *requestJar {
	return &requestJar{
		r:       r,
		w:       w,
		local:   make(map[string]string),
		enabled: enabled,
	}
}

func (j *requestJar) Get(name string) (string, error) {
	if v, ok := j.local[name]; ok {
		return v, nil
	}
	c, err := j.r.Cookie(name)
	if err != nil {
		// http.ErrNoCookie is the only error Cookie returns; absent is
		// an empty value, not a failure.
		return "", nil
	}
	return c.Value, nil
}

func (j *requestJar) Set(name, value string, expires time.Time, sameSite, domain string) error {
	mode := http.SameSiteDefaultMode
	if sameSite == "Lax" {
		mode = http.SameSiteLaxMode
	}
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expires,
		SameSite: mode,
		Domain:   domain,
		Path:     "/",
	})
	j.local[name] = value
	return nil
}

func (j *requestJar) Enabled() bool {
	return j.enabled
}

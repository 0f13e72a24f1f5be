// Package urls resolves the public URLs the platform uses to reach this service.
package urls

import (
	"net/http"
	"net/url"
	"strings"
)

// Resolver builds absolute URLs for agent routes and static assets.
//
// Base resolution order:
//  1. ProxyBase (SWML_PROXY_URL_BASE), when set
//  2. X-Forwarded-Proto / X-Forwarded-Host on the inbound request
//  3. the request Host (https when the request arrived over TLS)
//  4. Fallback (http://HOST:PORT)
type Resolver struct {
	ProxyBase string
	Fallback  string

	User     string
	Password string
}

// Base returns the scheme://authority root with no trailing slash.
// With withAuth the basic-auth credentials are embedded in the authority.
func (r Resolver) Base(req *http.Request, withAuth bool) string {
	base := r.rawBase(req)
	if !withAuth || r.Password == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	u.User = url.UserPassword(r.User, r.Password)
	return strings.TrimRight(u.String(), "/")
}

// URL joins base and an absolute path ("/call-agent", "/hold-music.wav").
func (r Resolver) URL(req *http.Request, path string, withAuth bool) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return r.Base(req, withAuth) + path
}

func (r Resolver) rawBase(req *http.Request) string {
	if p := strings.TrimRight(strings.TrimSpace(r.ProxyBase), "/"); p != "" {
		return p
	}
	if req != nil {
		if host := firstValue(req.Header.Get("X-Forwarded-Host")); host != "" {
			proto := firstValue(req.Header.Get("X-Forwarded-Proto"))
			if proto == "" {
				proto = "http"
			}
			return proto + "://" + host
		}
		if req.Host != "" {
			scheme := "http"
			if req.TLS != nil {
				scheme = "https"
			}
			return scheme + "://" + req.Host
		}
	}
	return strings.TrimRight(r.Fallback, "/")
}

// Redact masks the password of a URL for logging.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}

func firstValue(h string) string {
	if i := strings.IndexByte(h, ','); i >= 0 {
		h = h[:i]
	}
	return strings.TrimSpace(h)
}

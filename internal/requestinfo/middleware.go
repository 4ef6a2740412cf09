// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *Info.
//
/*
Context
--------
This handler sits right after request-id and recovery, before routing.  For
every request it:

  1. Derives the visitor key: the left-most X-Forwarded-For entry, else
     X-Real-IP, else the host part of r.RemoteAddr.
  2. Parses the User-Agent header.
  3. Performs a GeoLite2 lookup when a database is configured.
  4. Stores an `*Info` value in `request.Context`, so handlers can read it
     without reparsing.

Instrumentation
---------------
At debug level each invocation logs the visitor key, country, browser,
device, and bot flag.

Notes
-----
  • The visitor key is taken verbatim, not validated as an IP.  A proxy that
    forwards a hostname still yields a stable key.
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UnknownVisitor is the key used when no address can be derived.
const UnknownVisitor = "unknown"

// Enrich wraps an http.Handler, attaches *Info, and forwards.
func (rs *Resolver) Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := VisitorKey(r)
		info := &Info{
			VisitorKey: key,
			UA:         parseUA(r.UserAgent()),
			Geo:        rs.lookupGeo(key),
			Timestamp:  time.Now().UTC(),
		}

		zap.L().Debug("request info",
			zap.String("visitor", key),
			zap.String("country", info.Geo.CountryISO),
			zap.String("browser", info.UA.Browser),
			zap.String("device", info.UA.Device),
			zap.Bool("bot", info.UA.IsBot),
			zap.String("path", r.URL.Path),
		)

		next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
	})
}

// VisitorKey returns the stable per-visitor identity for r.
func VisitorKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return UnknownVisitor
}

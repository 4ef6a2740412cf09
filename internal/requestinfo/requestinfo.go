//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request visitor metadata
//  (visitor key, user-agent fingerprint, geolocation, and timestamp).
//  These structs are inert, so they are safe to log or JSON-encode.
//
//  The visitor key is the only field that affects behaviour: it feeds the
//  variant selector.  Everything else decorates logs and metrics.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

// UA holds the parsed user-agent properties worth logging.
type UA struct {
	Browser string `json:"browser"`
	Version string `json:"version,omitempty"`
	OS      string `json:"os"`
	Device  string `json:"device"` // "Desktop", "Mobile", "Tablet", or "Other"
	IsBot   bool   `json:"bot"`
}

// Geo holds IP-based hints.  Empty when no database is configured or the
// address has no match.
type Geo struct {
	CountryISO string `json:"country,omitempty"`
	City       string `json:"city,omitempty"`
}

// Info is attached to the request context by Resolver.Enrich.
type Info struct {
	VisitorKey string    `json:"visitor"`
	UA         UA        `json:"ua"`
	Geo        Geo       `json:"geo"`
	Timestamp  time.Time `json:"ts"`
}

// Resolver builds Info values.  The zero value works without geolocation.
type Resolver struct {
	geo *geoip2.Reader
}

// NewResolver opens the GeoLite2-City database at dbPath.  An empty path
// disables geolocation.
func NewResolver(dbPath string) (*Resolver, error) {
	if dbPath == "" {
		return &Resolver{}, nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open GeoLite2 DB: %w", err)
	}
	return &Resolver{geo: r}, nil
}

// Close releases the geolocation database.
func (r *Resolver) Close() error {
	if r.geo == nil {
		return nil
	}
	return r.geo.Close()
}

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the Info stored by Enrich, or nil.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

// WithInfo returns a copy of ctx carrying info.
func WithInfo(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// parseUA converts a raw header into UA using uasurfer.
func parseUA(raw string) UA {
	u := surfer.Parse(raw)
	out := UA{
		Browser: u.Browser.Name.StringTrimPrefix(),
		Version: versionString(u.Browser.Version),
		OS:      u.OS.Name.StringTrimPrefix(),
		IsBot:   u.IsBot(),
	}
	switch u.DeviceType {
	case surfer.DeviceComputer:
		out.Device = "Desktop"
	case surfer.DeviceTablet:
		out.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		out.Device = "Mobile"
	default:
		out.Device = "Other"
	}
	return out
}

// versionString renders 17.0.0 as "17" and 17.3.1 as "17.3.1".
func versionString(v surfer.Version) string {
	switch {
	case v.Major == 0 && v.Minor == 0 && v.Patch == 0:
		return ""
	case v.Patch != 0:
		return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
	case v.Minor != 0:
		return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
	default:
		return strconv.Itoa(v.Major)
	}
}

// lookupGeo returns best-effort Geo data for key when it is an address.
func (r *Resolver) lookupGeo(key string) Geo {
	if r.geo == nil {
		return Geo{}
	}
	ip := net.ParseIP(key)
	if ip == nil {
		return Geo{}
	}
	rec, err := r.geo.City(ip)
	if err != nil {
		return Geo{}
	}
	return Geo{CountryISO: rec.Country.IsoCode, City: rec.City.Names["en"]}
}

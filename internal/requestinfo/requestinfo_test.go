package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitorKey(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded left-most", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"}, "10.0.0.2:5000", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:5000", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.9:41000", "192.0.2.9"},
		{"remote without port", nil, "192.0.2.9", "192.0.2.9"},
		{"nothing", nil, "", UnknownVisitor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, VisitorKey(r))
		})
	}
}

func TestEnrich_AttachesInfo(t *testing.T) {
	rs, err := NewResolver("")
	require.NoError(t, err)

	var got *Info
	h := rs.Enrich(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/?url=x", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.NotNil(t, got)
	assert.Equal(t, "203.0.113.7", got.VisitorKey)
	assert.True(t, got.UA.IsBot)
	assert.Empty(t, got.Geo.CountryISO)
	assert.False(t, got.Timestamp.IsZero())
}

func TestNewResolver_MissingDB(t *testing.T) {
	_, err := NewResolver("/nonexistent/GeoLite2-City.mmdb")
	assert.Error(t, err)
}

package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(ok)

	r := httptest.NewRequest(http.MethodGet, "http://go.example.com/?url=abc&utm_source=x", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusPermanentRedirect, w.Code)
	assert.Equal(t, "https://go.example.com/?url=abc&utm_source=x", w.Header().Get("Location"))

	for name, mod := range map[string]func(*http.Request){
		"tls":       func(r *http.Request) { r.TLS = &tls.ConnectionState{} },
		"proxy":     func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "HTTPS") },
		"localhost": func(r *http.Request) { r.Host = "localhost:8080" },
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://go.example.com/", nil)
			mod(r)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, http.StatusNoContent, w.Code)
		})
	}
}

func TestSecurity_HeadersSurviveRedirect(t *testing.T) {
	h := Security(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://dest.example.com/", http.StatusTemporaryRedirect)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestStripPort(t *testing.T) {
	assert.Equal(t, "example.com", stripPort("example.com:80"))
	assert.Equal(t, "[::1]", stripPort("[::1]:8080"))
	assert.Equal(t, "example.com", stripPort("example.com"))
}

package redirect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/splitlink/internal/abtest"
	"github.com/yanizio/splitlink/internal/redirect"
	"github.com/yanizio/splitlink/internal/urlbuild"
)

type fakeRecords struct {
	rec  *redirect.Record
	err  error
	last *redirect.Visit
}

func (f *fakeRecords) Resolve(context.Context, string, *int64) (*redirect.Record, error) {
	return f.rec, f.err
}

func (f *fakeRecords) LastVisit(context.Context, int64) (*redirect.Visit, error) {
	return f.last, nil
}

type fakeVariants struct {
	vs  []abtest.Variant
	err error
}

func (f *fakeVariants) Active(context.Context, int64) ([]abtest.Variant, error) { return f.vs, f.err }

const template = "https://go.example.com/?url=https%3A%2F%2Fshop.example.com%2Flanding%3Fref%3Dsl"

func newTestComponent(rec *fakeRecords, vs *fakeVariants) http.Handler {
	c := &Component{
		records:  rec,
		variants: vs,
		composer: urlbuild.New(nil, urlbuild.Options{}),
		log:      zap.NewNop(),
	}
	r := chi.NewRouter()
	c.Routes(r)
	return r
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.RemoteAddr = "203.0.113.7:5555"
	h.ServeHTTP(w, r)
	return w
}

func TestRedirect_Primary(t *testing.T) {
	h := newTestComponent(
		&fakeRecords{rec: &redirect.Record{ID: 1, OriginalURL: template, ForwardQuery: true}},
		&fakeVariants{},
	)
	w := get(h, "/?url=landing&utm_source=fb")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://shop.example.com/landing?ref=sl&utm_source=fb", w.Header().Get("Location"))
}

func TestRedirect_NoForward(t *testing.T) {
	h := newTestComponent(
		&fakeRecords{rec: &redirect.Record{ID: 1, OriginalURL: template}},
		&fakeVariants{},
	)
	w := get(h, "/?url=landing&utm_source=fb")
	assert.Equal(t, "https://shop.example.com/landing?ref=sl", w.Header().Get("Location"))
}

func TestRedirect_FullWeightVariant(t *testing.T) {
	h := newTestComponent(
		&fakeRecords{rec: &redirect.Record{ID: 1, OriginalURL: template}},
		&fakeVariants{vs: []abtest.Variant{
			{ID: 9, ShortURLID: 1, TargetURL: "https://b.example.com/", Weight: 1.0, Active: true},
		}},
	)
	w := get(h, "/?url=landing")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://b.example.com/", w.Header().Get("Location"))
}

func TestRedirect_VariantErrorFallsBackToPrimary(t *testing.T) {
	h := newTestComponent(
		&fakeRecords{rec: &redirect.Record{ID: 1, OriginalURL: template}},
		&fakeVariants{err: errors.New("db down")},
	)
	w := get(h, "/?url=landing")
	assert.Equal(t, "https://shop.example.com/landing?ref=sl", w.Header().Get("Location"))
}

func TestRedirect_Errors(t *testing.T) {
	cases := []struct {
		name   string
		target string
		rec    *fakeRecords
		want   int
	}{
		{"missing url", "/", &fakeRecords{}, http.StatusBadRequest},
		{"not found", "/?url=nope", &fakeRecords{err: redirect.ErrNotFound}, http.StatusNotFound},
		{"no target in template", "/?url=x",
			&fakeRecords{rec: &redirect.Record{ID: 1, OriginalURL: "https://go.example.com/?a=1"}}, http.StatusNotFound},
		{"db failure", "/?url=x", &fakeRecords{err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(newTestComponent(tc.rec, &fakeVariants{}), tc.target)
			require.Equal(t, tc.want, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestRedirect_ClickIDOnlyForForms(t *testing.T) {
	// No mapper is configured, so a recent visit never adds parameters.
	h := newTestComponent(
		&fakeRecords{
			rec:  &redirect.Record{ID: 1, OriginalURL: template},
			last: &redirect.Visit{ID: 3, Date: time.Now().UTC()},
		},
		&fakeVariants{},
	)
	w := get(h, "/?url=landing")
	assert.Equal(t, "https://shop.example.com/landing?ref=sl", w.Header().Get("Location"))
}

// components/redirect/redirect.go
//
// Redirect component: GET /?url=<value>.
//
// Request flow
// ------------
//
//  1. Resolve the record whose template contains <value>.
//  2. Unwrap the template's `url` parameter into the primary destination.
//  3. Load the newest visit and the active variants of the record.
//  4. Pick primary or a variant from the visitor key.
//  5. Compose the final URL (forwarded params, form prefill, click id).
//  6. Answer 307 Temporary Redirect.
//
// Only step 1 may fail the request with a 5xx.  Problems in steps 3 and 5
// degrade to the primary destination or fewer parameters and are logged.
package redirect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/splitlink/internal/abtest"
	"github.com/yanizio/splitlink/internal/component"
	"github.com/yanizio/splitlink/internal/metrics"
	"github.com/yanizio/splitlink/internal/redirect"
	"github.com/yanizio/splitlink/internal/requestinfo"
	"github.com/yanizio/splitlink/internal/urlbuild"
)

// compile-time assertion
var _ component.Component = (*Component)(nil)

type records interface {
	Resolve(ctx context.Context, value string, domainID *int64) (*redirect.Record, error)
	LastVisit(ctx context.Context, recordID int64) (*redirect.Visit, error)
}

type variants interface {
	Active(ctx context.Context, recordID int64) ([]abtest.Variant, error)
}

type composer interface {
	Build(ctx context.Context, in urlbuild.Input) string
}

// Component serves the public redirect endpoint.
type Component struct {
	records  records
	variants variants
	composer composer
	log      *zap.Logger
}

func (c *Component) Name() string { return "redirect" }

// Init binds the shared stores and composer.
func (c *Component) Init(d component.Deps) error {
	if d.Records == nil || d.Variants == nil || d.Composer == nil {
		return errors.New("redirect: records, variants, and composer are required")
	}
	c.records, c.variants, c.composer = d.Records, d.Variants, d.Composer
	c.log = zap.L().Named("redirect")
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Get("/", c.handleRedirect)
}

func init() { component.Register(&Component{}) }

/*──────────────────────────── Handler ──────────────────────────────────────*/

func (c *Component) handleRedirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	value := r.URL.Query().Get(urlbuild.TargetParam)
	if value == "" {
		metrics.RedirectRequestsTotal.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}

	rec, err := c.records.Resolve(ctx, value, nil)
	switch {
	case errors.Is(err, redirect.ErrNotFound):
		metrics.RedirectRequestsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		c.log.Warn("url not found", zap.String("url", value))
		writeError(w, http.StatusNotFound, "URL not found")
		return
	case err != nil:
		metrics.RedirectRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		c.log.Error("resolve failed", zap.String("url", value), zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	primary, ok := urlbuild.Unwrap(rec.OriginalURL)
	if !ok {
		metrics.RedirectRequestsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		c.log.Warn("redirect url not found", zap.String("url", value), zap.Int64("record", rec.ID))
		writeError(w, http.StatusNotFound, "Redirect URL not found")
		return
	}

	visitor := requestinfo.VisitorKey(r)
	info := requestinfo.FromContext(ctx)
	if info != nil {
		visitor = info.VisitorKey
	}

	last, err := c.records.LastVisit(ctx, rec.ID)
	if err != nil {
		c.log.Warn("last visit unavailable", zap.Int64("record", rec.ID), zap.Error(err))
		last = nil
	}
	vs, err := c.variants.Active(ctx, rec.ID)
	if err != nil {
		c.log.Warn("variants unavailable", zap.Int64("record", rec.ID), zap.Error(err))
		vs = nil
	}

	dest, variantID := abtest.Select(visitor, vs, primary)
	arm := metrics.ArmPrimary
	if variantID != nil {
		arm = metrics.ArmVariant
	}

	params := urlbuild.ParseQuery(r.URL.RawQuery)
	params.Del(urlbuild.TargetParam)

	final := c.composer.Build(ctx, urlbuild.Input{
		Destination:         dest,
		Forward:             rec.ForwardQuery,
		Request:             params,
		LastVisit:           last,
		IncludeFieldMapping: true,
	})

	metrics.RedirectRequestsTotal.WithLabelValues(metrics.OutcomeRedirected).Inc()
	metrics.RedirectVariantTotal.WithLabelValues(arm).Inc()

	fields := []zap.Field{
		zap.String("request_id", middleware.GetReqID(ctx)),
		zap.String("code", rec.ShortCode),
		zap.String("arm", arm),
		zap.String("location", final),
	}
	if variantID != nil {
		fields = append(fields, zap.Int64("variant", *variantID))
	}
	if info != nil {
		fields = append(fields,
			zap.String("country", info.Geo.CountryISO),
			zap.String("device", info.UA.Device),
			zap.Bool("bot", info.UA.IsBot))
	}
	c.log.Info("redirect", fields...)

	http.Redirect(w, r, final, http.StatusTemporaryRedirect)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

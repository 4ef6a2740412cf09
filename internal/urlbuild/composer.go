// internal/urlbuild/composer.go
//
// Final redirect URL composition.
//
// Context
// -------
// Build merges three parameter sources onto the chosen destination, lowest
// precedence first:
//
//  1. the destination's own query string;
//  2. the inbound request parameters, when the record forwards its query;
//  3. form prefill parameters (`entry.<id>=<value>`), when the destination
//     is a registered form.
//
// Keys keep the position of their first appearance.  The form branch is
// fail-open: any lookup problem is logged and the parameter is skipped, so
// the visitor is always redirected.
//
// Notes
// -----
//   - The well-known names (utm_source, utm_medium, utm_campaign) are always
//     consumed by the form branch.  When a field cannot be mapped the named
//     parameter is dropped rather than forwarded under its own name.
//   - click_id / click_timestamp are attached only when the record's most
//     recent visit is at most ClickIDMaxAge old.
package urlbuild

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/splitlink/internal/forms"
	"github.com/yanizio/splitlink/internal/redirect"
)

// MappedParams are request parameters translated into form entries.
var MappedParams = []string{"utm_source", "utm_medium", "utm_campaign"}

const (
	// ClickIDField and ClickTimestampField are form field titles filled from
	// the last visit.
	ClickIDField        = "click_id"
	ClickTimestampField = "click_timestamp"

	// TimestampLayout formats click_timestamp (UTC).
	TimestampLayout = "2006-01-02 15:04:05"
)

// FieldMapper resolves form references and field titles.  *forms.FieldCache
// implements it.
type FieldMapper interface {
	Lookup(ctx context.Context, ref string) (*forms.Mapping, error)
	EntryID(ctx context.Context, formID, title string) (int64, forms.Outcome)
}

// Options configures a Composer.
type Options struct {
	HostPattern   string        // default "docs.google.com/forms"
	ClickIDMaxAge time.Duration // default 60s
	Clock         func() time.Time
}

// Composer builds final redirect URLs.
type Composer struct {
	mapper  FieldMapper
	pattern string
	maxAge  time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// New returns a Composer.  A nil mapper disables the form branch.
func New(mapper FieldMapper, opts Options) *Composer {
	if opts.HostPattern == "" {
		opts.HostPattern = "docs.google.com/forms"
	}
	if opts.ClickIDMaxAge <= 0 {
		opts.ClickIDMaxAge = 60 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Composer{
		mapper:  mapper,
		pattern: opts.HostPattern,
		maxAge:  opts.ClickIDMaxAge,
		now:     opts.Clock,
		log:     zap.L().Named("urlbuild"),
	}
}

// Input is one Build request.
type Input struct {
	Destination         string
	Forward             bool
	Request             *Params
	LastVisit           *redirect.Visit
	IncludeFieldMapping bool
}

// Build returns the final URL.  A destination that cannot be parsed is
// returned unchanged.
func (c *Composer) Build(ctx context.Context, in Input) string {
	u, err := url.Parse(in.Destination)
	if err != nil {
		c.log.Warn("unparseable destination", zap.String("url", in.Destination), zap.Error(err))
		return in.Destination
	}

	params := ParseQuery(u.RawQuery)
	if in.Forward {
		params.Merge(in.Request)
	}
	if in.IncludeFieldMapping && c.mapper != nil && strings.Contains(in.Destination, c.pattern) {
		c.addFormParams(ctx, in, params)
	}

	u.RawQuery = params.Encode()
	u.ForceQuery = false
	return u.String()
}

func (c *Composer) addFormParams(ctx context.Context, in Input, params *Params) {
	ref, ok := forms.ExtractRef(in.Destination)
	if !ok {
		c.log.Warn("no form reference in destination", zap.String("url", in.Destination))
		return
	}
	m, err := c.mapper.Lookup(ctx, ref)
	if err != nil {
		if errors.Is(err, forms.ErrFormNotFound) {
			c.log.Debug("form not registered", zap.String("ref", ref))
		} else {
			c.log.Warn("form lookup failed", zap.String("ref", ref), zap.Error(err))
		}
		return
	}

	if in.Request != nil {
		for _, name := range MappedParams {
			v, ok := in.Request.Get(name)
			if !ok {
				continue
			}
			params.Del(name)
			c.set(ctx, params, m.FormID, name, v)
		}
	}

	if v := in.LastVisit; v != nil && c.now().Sub(v.Date) <= c.maxAge {
		c.set(ctx, params, m.FormID, ClickIDField, strconv.FormatInt(v.ID, 10))
		c.set(ctx, params, m.FormID, ClickTimestampField, v.Date.UTC().Format(TimestampLayout))
	}
}

func (c *Composer) set(ctx context.Context, params *Params, formID, title, value string) {
	id, out := c.mapper.EntryID(ctx, formID, title)
	if out != forms.Found {
		c.log.Info("form field not mapped",
			zap.String("form", formID),
			zap.String("field", title),
			zap.Stringer("outcome", out))
		return
	}
	params.Set(EntryKey(id), value)
}

// EntryKey is the prefill parameter name for a form entry id.
func EntryKey(id int64) string { return "entry." + strconv.FormatInt(id, 10) }

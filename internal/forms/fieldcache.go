// internal/forms/fieldcache.go
//
// Two-tier field-mapping cache.
//
// Context
// -------
// EntryID answers "which entry id does field <title> of form <id> use?"
// without touching the network on the hot path:
//
//  1. entry tier, (form, title) → entry id, default TTL 15 minutes;
//  2. schema tier, form → last fetched schema, default TTL 2 minutes;
//  3. on a schema miss, one fetch per form (singleflight) refills both
//     tiers and reconciles form_entries in the database;
//  4. when the fetch fails, the persisted form_entries rows are consulted
//     before giving up.  Those rows are served but not cached, so the next
//     request tries the service again once the schema tier allows it.
//
// Outcomes are explicit: Found, Missing (the form has no such field), and
// Unavailable (no answer could be obtained).  Callers treat both non-Found
// outcomes as "omit this parameter".
//
// Notes
// -----
//   - Both tiers are process-wide and guarded by one mutex each; writers are
//     last-write-wins.
//   - Run() drives periodic sweeping of stale entries.
package forms

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/splitlink/internal/cache"
	"github.com/yanizio/splitlink/internal/metrics"
)

//go:generate mockgen -destination=../mocks/mock_forms.go -package=mocks github.com/yanizio/splitlink/internal/forms Fetcher,Repository

// Outcome classifies an EntryID lookup.
type Outcome int

const (
	Found Outcome = iota
	Missing
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Missing:
		return "missing"
	default:
		return "unavailable"
	}
}

// Repository is the persistence the cache needs.
type Repository interface {
	ByReference(ctx context.Context, ref string) (*Mapping, error)
	Entries(ctx context.Context, mappingID int64) ([]FieldEntry, error)
	Reconcile(ctx context.Context, mappingID int64, fields []Field) (ReconcileResult, error)
}

type fieldKey struct {
	form  string
	title string
}

// CacheOptions sizes the tiers.  Zero values fall back to defaults.
type CacheOptions struct {
	FieldTTL   time.Duration
	SchemaTTL  time.Duration
	MaxEntries int
	Clock      cache.Clock
}

// FieldCache resolves form field titles to entry ids.
type FieldCache struct {
	repo    Repository
	fetcher Fetcher
	entries *cache.TTL[fieldKey, int64]
	schemas *cache.TTL[string, *Schema]
	sfg     singleflight.Group
	log     *zap.Logger
}

// NewFieldCache wires a cache over repo and fetcher.
func NewFieldCache(repo Repository, fetcher Fetcher, opts CacheOptions) *FieldCache {
	if opts.FieldTTL <= 0 {
		opts.FieldTTL = 15 * time.Minute
	}
	if opts.SchemaTTL <= 0 {
		opts.SchemaTTL = 2 * time.Minute
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 10000
	}
	return &FieldCache{
		repo:    repo,
		fetcher: fetcher,
		entries: cache.New[fieldKey, int64](opts.MaxEntries, opts.FieldTTL, opts.Clock),
		schemas: cache.New[string, *Schema](opts.MaxEntries, opts.SchemaTTL, opts.Clock),
		log:     zap.L().Named("forms"),
	}
}

// Lookup returns the mapping registered under a public or canonical ref.
func (c *FieldCache) Lookup(ctx context.Context, ref string) (*Mapping, error) {
	return c.repo.ByReference(ctx, ref)
}

// EntryID resolves title within formID (canonical reference).
func (c *FieldCache) EntryID(ctx context.Context, formID, title string) (int64, Outcome) {
	key := fieldKey{form: formID, title: normTitle(title)}
	if id, ok := c.entries.Get(key); ok {
		metrics.FieldCacheLookupsTotal.WithLabelValues(metrics.LookupHit).Inc()
		return id, Found
	}

	s, err := c.schema(ctx, formID)
	if err == nil {
		id, ok := s.Lookup(title)
		if !ok {
			metrics.FieldCacheLookupsTotal.WithLabelValues(metrics.LookupMissing).Inc()
			return 0, Missing
		}
		c.entries.Add(key, id)
		metrics.FieldCacheLookupsTotal.WithLabelValues(metrics.LookupFetched).Inc()
		return id, Found
	}

	if id, ok := c.persisted(ctx, formID, key.title); ok {
		metrics.FieldCacheLookupsTotal.WithLabelValues(metrics.LookupPersisted).Inc()
		return id, Found
	}
	metrics.FieldCacheLookupsTotal.WithLabelValues(metrics.LookupUnavailable).Inc()
	return 0, Unavailable
}

// schema returns the cached schema or fetches it once for all concurrent
// callers.  A successful fetch repopulates the entry tier and reconciles the
// store.
func (c *FieldCache) schema(ctx context.Context, formID string) (*Schema, error) {
	if s, ok := c.schemas.Get(formID); ok {
		return s, nil
	}

	// Detached so one caller's cancellation does not fail the others.
	fctx := context.WithoutCancel(ctx)
	v, err, _ := c.sfg.Do(formID, func() (interface{}, error) {
		if s, ok := c.schemas.Get(formID); ok {
			return s, nil
		}
		s, err := c.fetcher.Fetch(fctx, formID)
		if err != nil {
			return nil, err
		}
		c.schemas.Add(formID, s)
		for _, f := range s.Fields {
			c.entries.Add(fieldKey{form: formID, title: normTitle(f.Title)}, f.EntryID)
		}
		metrics.FieldCacheEntries.Set(float64(c.entries.Len()))
		c.reconcile(fctx, formID, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Schema), nil
}

func (c *FieldCache) reconcile(ctx context.Context, formID string, s *Schema) {
	m, err := c.repo.ByReference(ctx, formID)
	if err != nil {
		if !errors.Is(err, ErrFormNotFound) {
			c.log.Warn("reconcile lookup failed", zap.String("form", formID), zap.Error(err))
		}
		return
	}
	res, err := c.repo.Reconcile(ctx, m.ID, s.Fields)
	if err != nil {
		c.log.Warn("reconcile failed", zap.String("form", formID), zap.Error(err))
		return
	}
	metrics.FieldEntriesReconciledTotal.WithLabelValues(metrics.ReconcileUpsert).Add(float64(res.Upserted))
	metrics.FieldEntriesReconciledTotal.WithLabelValues(metrics.ReconcileDelete).Add(float64(res.Deleted))
	if res.Upserted > 0 || res.Deleted > 0 {
		c.log.Info("form entries reconciled",
			zap.String("form", formID),
			zap.Int("upserted", res.Upserted),
			zap.Int("deleted", res.Deleted))
	}
}

func (c *FieldCache) persisted(ctx context.Context, formID, title string) (int64, bool) {
	m, err := c.repo.ByReference(ctx, formID)
	if err != nil {
		return 0, false
	}
	rows, err := c.repo.Entries(ctx, m.ID)
	if err != nil {
		c.log.Warn("persisted entries unavailable", zap.String("form", formID), zap.Error(err))
		return 0, false
	}
	for _, e := range rows {
		if normTitle(e.Title) == title {
			return e.EntryID, true
		}
	}
	return 0, false
}

// Invalidate drops everything cached for one form.
func (c *FieldCache) Invalidate(formID string) {
	c.schemas.Remove(formID)
	c.entries.RemoveIf(func(k fieldKey) bool { return k.form == formID })
	metrics.FieldCacheEntries.Set(float64(c.entries.Len()))
}

// Clear drops both tiers.
func (c *FieldCache) Clear() {
	c.entries.Purge()
	c.schemas.Purge()
	metrics.FieldCacheEntries.Set(0)
	c.log.Info("field caches cleared")
}

// Sweep removes stale entries from both tiers.
func (c *FieldCache) Sweep() int {
	n := c.entries.Sweep() + c.schemas.Sweep()
	metrics.FieldCacheEntries.Set(float64(c.entries.Len()))
	return n
}

// Run sweeps every interval until ctx is done.
func (c *FieldCache) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := c.Sweep(); n > 0 {
				c.log.Debug("field cache sweep", zap.Int("removed", n))
			}
		}
	}
}

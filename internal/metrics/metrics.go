// Package metrics holds Prometheus instruments shared by the redirect path
// and the field-mapping cache.  All collectors are registered with the global
// registry, so importing this package in main.go is enough to expose them on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label values used across packages.
const (
	OutcomeRedirected = "redirected"
	OutcomeNotFound   = "not_found"
	OutcomeBadRequest = "bad_request"
	OutcomeError      = "error"

	ArmPrimary = "primary"
	ArmVariant = "variant"

	LookupHit         = "hit"
	LookupFetched     = "fetched"
	LookupPersisted   = "persisted"
	LookupMissing     = "missing"
	LookupUnavailable = "unavailable"

	FetchOK    = "ok"
	FetchError = "error"

	ReconcileUpsert = "upsert"
	ReconcileDelete = "delete"
)

var (
	RedirectRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirect_requests_total",
			Help: "Redirect requests by outcome.",
		}, []string{"outcome"})

	RedirectVariantTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirect_variant_total",
			Help: "Resolved redirects by arm (primary or variant).",
		}, []string{"arm"})

	FieldCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "field_cache_lookups_total",
			Help: "Field entry-id lookups by result.",
		}, []string{"result"})

	FieldCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "field_cache_entries",
			Help: "Field mappings currently held in memory.",
		})

	SchemaFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_fetch_total",
			Help: "Calls to the external form schema service by outcome.",
		}, []string{"outcome"})

	FieldEntriesReconciledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "field_entries_reconciled_total",
			Help: "Persisted field entries written during reconciliation.",
		}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		RedirectRequestsTotal,
		RedirectVariantTotal,
		FieldCacheLookupsTotal,
		FieldCacheEntries,
		SchemaFetchTotal,
		FieldEntriesReconciledTotal,
	)
}

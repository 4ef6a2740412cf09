// components/status/status.go
//
// Status Component: liveness probe and Prometheus exposition.
package status

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/splitlink/internal/component"
)

// compile-time assertion
var _ component.Component = (*Comp)(nil)

// Comp implements component.Component; no state needed.
type Comp struct{}

func (c *Comp) Name() string                { return "status" }
func (c *Comp) Init(_ component.Deps) error { return nil }

func (c *Comp) Routes(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	r.Handle("/metrics", promhttp.Handler())
}

// Register component at package init.
func init() {
	component.Register(&Comp{})
}

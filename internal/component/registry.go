// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web imports the
// components for their side effect, calls Init(deps) on each, and lets every
// component add its routes to the shared chi router.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/splitlink/internal/abtest"
	"github.com/yanizio/splitlink/internal/config"
	"github.com/yanizio/splitlink/internal/redirect"
	"github.com/yanizio/splitlink/internal/urlbuild"
)

// Deps are the shared services handed to every component at start-up.
type Deps struct {
	Config   *config.Config
	DB       *sqlx.DB
	Records  *redirect.Store
	Variants *abtest.Store
	Composer *urlbuild.Composer
}

// Component contract.
//
// Init runs once before Routes.  Routes adds the component's endpoints to r,
// e.g.
//
//	r.Get("/", c.handleRedirect)
type Component interface {
	Name() string
	Init(Deps) error
	Routes(r chi.Router)
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component ordered by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

package component

import (
	"testing"

	"github.com/go-chi/chi/v5"
)

type stub string

func (s stub) Name() string { return string(s) }
func (stub) Init(Deps) error { return nil }
func (stub) Routes(chi.Router) {}

func TestAll_SortedByName(t *testing.T) {
	Register(stub("zeta"))
	Register(stub("alpha"))
	Register(stub("alpha")) // re-registration replaces

	var names []string
	for _, c := range All() {
		if c.Name() == "alpha" || c.Name() == "zeta" {
			names = append(names, c.Name())
		}
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("All() order = %v, want [alpha zeta]", names)
	}
}

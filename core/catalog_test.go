package core_test

import (
	"testing"

	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/core"
)

func TestCatalog_RegisterIdempotent(t *testing.T) {
	cat := core.NewCatalog()
	original := newMockModule("a")

	if !cat.Register(original) {
		t.Fatal("Register() = false for a new id, want true")
	}
	if cat.Register(newMockModule("a")) {
		t.Error("Register() = true for a duplicate id, want false")
	}

	got, ok := cat.Get("a")
	if !ok {
		t.Fatal("Get() did not find registered module")
	}
	if got != core.Module(original) {
		t.Error("Get() returned the duplicate, want the original registration")
	}
	if cat.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cat.Len())
	}
}

func TestCatalog_Get_Unknown(t *testing.T) {
	cat := core.NewCatalog()
	if _, ok := cat.Get("ghost"); ok {
		t.Error("Get() = true for an unregistered id")
	}
}

func TestCatalog_All_SortedByID(t *testing.T) {
	cat := core.NewCatalog()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		cat.Register(newMockModule(id))
	}

	all := cat.All()
	want := []string{"alpha", "mid", "zeta"}
	if len(all) != len(want) {
		t.Fatalf("All() returned %d modules, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID() != id {
			t.Fatalf("All() order = [%s %s %s], want %v",
				all[0].ID(), all[1].ID(), all[2].ID(), want)
		}
	}
}

func TestCatalog_ByStrategy(t *testing.T) {
	cat := core.NewCatalog()

	eager := newMockModule("eager")
	eager.manifest.Strategy = core.StrategyEager
	lazyB := newMockModule("b-lazy")
	lazyB.manifest.Strategy = core.StrategyLazy
	lazyA := newMockModule("a-lazy")
	lazyA.manifest.Strategy = core.StrategyLazy
	cat.Register(eager)
	cat.Register(lazyB)
	cat.Register(lazyA)

	lazy := cat.ByStrategy(core.StrategyLazy)
	if len(lazy) != 2 || lazy[0].ID() != "a-lazy" || lazy[1].ID() != "b-lazy" {
		t.Errorf("ByStrategy(lazy) = %v, want [a-lazy b-lazy]", lazy)
	}
	if bg := cat.ByStrategy(core.StrategyBackground); len(bg) != 0 {
		t.Errorf("ByStrategy(background) returned %d modules, want 0", len(bg))
	}
}

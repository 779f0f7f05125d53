package plugins

import (
	"reflect"
	"testing"
)

func mkMeta(name string, deps ...string) *Metadata {
	return &Metadata{
		Name:             name,
		Version:          "0.0.0",
		DependsOn:        deps,
		EnabledByDefault: true,
	}
}

func orderNames(metas []*Metadata) []string {
	names := make([]string, 0, len(metas))
	for _, m := range metas {
		names = append(names, m.Name)
	}

	return names
}

func TestResolveOrdersDependenciesFirst(t *testing.T) {
	t.Parallel()

	metas := []*Metadata{
		mkMeta("gateway", "store", "auth"),
		mkMeta("auth", "store"),
		mkMeta("store"),
	}

	order, cycleErr := Resolve(metas)
	if cycleErr != nil {
		t.Fatalf("unexpected cycle: %v", cycleErr)
	}

	pos := make(map[string]int, len(order))
	for i, m := range order {
		pos[m.Name] = i
	}

	if len(order) != 3 {
		t.Fatalf("order has %d entries, want 3", len(order))
	}
	if pos["store"] > pos["auth"] || pos["auth"] > pos["gateway"] || pos["store"] > pos["gateway"] {
		t.Errorf("dependencies do not precede dependents: %v", orderNames(order))
	}
}

func TestResolveDeterministic(t *testing.T) {
	t.Parallel()

	build := func() []*Metadata {
		return []*Metadata{
			mkMeta("zeta"),
			mkMeta("alpha"),
			mkMeta("mid", "zeta"),
			mkMeta("beta"),
		}
	}

	first, cycleErr := Resolve(build())
	if cycleErr != nil {
		t.Fatalf("unexpected cycle: %v", cycleErr)
	}

	for i := 0; i < 10; i++ {
		again, cycleErr := Resolve(build())
		if cycleErr != nil {
			t.Fatalf("unexpected cycle: %v", cycleErr)
		}
		if !reflect.DeepEqual(orderNames(first), orderNames(again)) {
			t.Fatalf("order changed between runs: %v vs %v", orderNames(first), orderNames(again))
		}
	}

	// independent plugins keep discovery order.
	want := []string{"zeta", "alpha", "mid", "beta"}
	if !reflect.DeepEqual(orderNames(first), want) {
		t.Errorf("order = %v, want %v", orderNames(first), want)
	}
}

func TestResolveCycleExcluded(t *testing.T) {
	t.Parallel()

	metas := []*Metadata{
		mkMeta("a", "b"),
		mkMeta("b", "c"),
		mkMeta("c", "a"),
		mkMeta("d"),
	}

	order, cycleErr := Resolve(metas)
	if cycleErr == nil {
		t.Fatal("expected a cycle error")
	}

	if !reflect.DeepEqual(cycleErr.Members, []string{"a", "b", "c"}) {
		t.Errorf("Members = %v, want [a b c]", cycleErr.Members)
	}
	if !reflect.DeepEqual(orderNames(order), []string{"d"}) {
		t.Errorf("order = %v, want [d]", orderNames(order))
	}
}

func TestResolveCycleDependentIsNotAMember(t *testing.T) {
	t.Parallel()

	metas := []*Metadata{
		mkMeta("a", "b"),
		mkMeta("b", "a"),
		mkMeta("leech", "a"),
		mkMeta("free"),
	}

	order, cycleErr := Resolve(metas)
	if cycleErr == nil {
		t.Fatal("expected a cycle error")
	}

	if !reflect.DeepEqual(cycleErr.Members, []string{"a", "b"}) {
		t.Errorf("Members = %v, want [a b]", cycleErr.Members)
	}
	// leech cannot be ordered, but it is not part of the cycle.
	if !reflect.DeepEqual(orderNames(order), []string{"free"}) {
		t.Errorf("order = %v, want [free]", orderNames(order))
	}
}

func TestResolveUnknownDependencyIsNotAnEdge(t *testing.T) {
	t.Parallel()

	metas := []*Metadata{
		mkMeta("echo", "ghost"),
		mkMeta("store"),
	}

	order, cycleErr := Resolve(metas)
	if cycleErr != nil {
		t.Fatalf("unexpected cycle: %v", cycleErr)
	}
	if len(order) != 2 {
		t.Fatalf("order = %v, want both plugins present", orderNames(order))
	}
}

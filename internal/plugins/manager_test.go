package plugins

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func testManager(t *testing.T, opts Options) *Manager {
	t.Helper()

	if len(opts.SearchPaths) == 0 {
		opts.SearchPaths = []string{t.TempDir()}
	}
	if opts.HostVersion == "" {
		opts.HostVersion = "1.4.0"
	}

	m, err := NewManager(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	return m
}

func TestNewManagerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(context.Background(), Options{HostVersion: "1.0.0"}); !errors.Is(err, ErrNoSearchPaths) {
		t.Errorf("no search paths error = %v, want ErrNoSearchPaths", err)
	}

	_, err := NewManager(context.Background(), Options{
		SearchPaths: []string{"/tmp"},
		HostVersion: "not-a-version",
	})
	if !errors.Is(err, ErrVersionInvalid) {
		t.Errorf("bad host version error = %v, want ErrVersionInvalid", err)
	}
}

func TestValidateCommandIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ids     []string
		wantErr bool
	}{
		{name: "empty list", ids: nil},
		{name: "normal ids", ids: []string{"echo.say", "echo.upper"}},
		{name: "empty id", ids: []string{"echo.say", ""}, wantErr: true},
		{name: "space in id", ids: []string{"echo say"}, wantErr: true},
		{name: "tab in id", ids: []string{"echo\tsay"}, wantErr: true},
		{name: "duplicate id", ids: []string{"echo.say", "echo.say"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validateCommandIDs(tt.ids)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCommandIDs(%v) error = %v, wantErr %v", tt.ids, err, tt.wantErr)
			}
		})
	}
}

func TestDecideEligibility(t *testing.T) {
	t.Parallel()

	m := testManager(t, Options{Deny: []string{"banned"}})

	store := mkMeta("store")
	auth := mkMeta("auth", "store")
	relic := mkMeta("relic")
	relic.MinHostVersion = "99.0.0"
	child := mkMeta("child", "relic")
	banned := mkMeta("banned")
	fan := mkMeta("fan", "banned")
	orphan := mkMeta("orphan", "ghost")

	valid := []*Metadata{store, auth, relic, child, banned, fan, orphan}
	decisions, order := m.decideEligibility(valid)

	wantOrder := []string{"store", "auth", "child", "fan", "orphan"}
	if got := orderNames(order); !reflect.DeepEqual(got, wantOrder) {
		t.Errorf("gated order = %v, want %v", got, wantOrder)
	}

	wantStates := map[string]State{
		"store":  StateRegistered,
		"auth":   StateRegistered,
		"relic":  StateVersionRejected,
		"child":  StateDependencyUnmet,
		"banned": StatePolicyDisabled,
		"fan":    StateDependencyUnmet,
		"orphan": StateDependencyUnmet,
	}
	for name, want := range wantStates {
		d, ok := decisions[name]
		if !ok {
			t.Errorf("no decision for %s", name)

			continue
		}
		if d.state != want {
			t.Errorf("%s decided %s (%s), want %s", name, d.state, d.detail, want)
		}
	}

	if d := decisions["child"]; !strings.Contains(d.detail, "relic") {
		t.Errorf("child detail %q does not name the unmet dependency", d.detail)
	}
	if d := decisions["orphan"]; !strings.Contains(d.detail, "ghost") {
		t.Errorf("orphan detail %q does not name the absent dependency", d.detail)
	}
}

func TestDecideEligibilityVersionGateBeforePolicy(t *testing.T) {
	t.Parallel()

	m := testManager(t, Options{Deny: []string{"relic"}})

	relic := mkMeta("relic")
	relic.MinHostVersion = "99.0.0"

	decisions, order := m.decideEligibility([]*Metadata{relic})
	if d := decisions["relic"]; d.state != StateVersionRejected {
		t.Errorf("decided %s, want VersionRejected to take precedence over policy", d.state)
	}
	if len(order) != 0 {
		t.Errorf("gated order = %v, want empty", orderNames(order))
	}
}

func TestDecideEligibilityCycle(t *testing.T) {
	t.Parallel()

	m := testManager(t, Options{})

	a := mkMeta("a", "b")
	b := mkMeta("b", "a")
	leech := mkMeta("leech", "a")
	free := mkMeta("free")

	decisions, order := m.decideEligibility([]*Metadata{a, b, leech, free})

	if got := orderNames(order); !reflect.DeepEqual(got, []string{"free"}) {
		t.Errorf("gated order = %v, want only free", got)
	}
	if d := decisions["free"]; d.state != StateRegistered {
		t.Errorf("free decided %s, want Registered", d.state)
	}
	for _, name := range []string{"a", "b"} {
		d := decisions[name]
		if d.state != StateDependencyUnmet {
			t.Errorf("%s decided %s, want DependencyUnmet", name, d.state)
		}
		if !strings.Contains(d.detail, "circular") {
			t.Errorf("%s detail %q does not mention the cycle", name, d.detail)
		}
	}

	// a dependent of a cycle member reports the dependency, not the cycle.
	d := decisions["leech"]
	if d.state != StateDependencyUnmet {
		t.Errorf("leech decided %s, want DependencyUnmet", d.state)
	}
	if !strings.Contains(d.detail, "requires a") {
		t.Errorf("leech detail %q does not name its dependency", d.detail)
	}
}

func TestDecideEligibilityGatesBeforeResolve(t *testing.T) {
	t.Parallel()

	m := testManager(t, Options{})

	// relic and mate reference each other, but relic falls to the version
	// gate first, so no cycle survives into resolution.
	relic := mkMeta("relic", "mate")
	relic.MinHostVersion = "99.0.0"
	mate := mkMeta("mate", "relic")

	decisions, order := m.decideEligibility([]*Metadata{relic, mate})

	if d := decisions["relic"]; d.state != StateVersionRejected {
		t.Errorf("relic decided %s (%s), want VersionRejected", d.state, d.detail)
	}
	d := decisions["mate"]
	if d.state != StateDependencyUnmet {
		t.Errorf("mate decided %s (%s), want DependencyUnmet", d.state, d.detail)
	}
	if !strings.Contains(d.detail, "relic") {
		t.Errorf("mate detail %q does not name the rejected dependency", d.detail)
	}
	if strings.Contains(d.detail, "circular") {
		t.Errorf("mate detail %q reports a cycle that gating should have dissolved", d.detail)
	}
	if got := orderNames(order); !reflect.DeepEqual(got, []string{"mate"}) {
		t.Errorf("gated order = %v, want only mate", got)
	}
}

func TestManagerEntriesEmptyBeforeLoad(t *testing.T) {
	t.Parallel()

	m := testManager(t, Options{})
	if entries := m.Entries(); len(entries) != 0 {
		t.Errorf("fresh manager has %d entries", len(entries))
	}
	if _, _, err := m.registry.instanceFor("echo.say"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("dispatch on empty registry = %v, want ErrUnknownCommand", err)
	}
}

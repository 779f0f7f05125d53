package plugins

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// Resolve orders validated plugins so every dependency precedes its
// dependents, using Kahn's algorithm: repeatedly remove nodes whose known
// dependencies are all satisfied. Ties among ready nodes break by discovery
// order, keeping repeated runs over the same candidate set byte-for-byte
// reproducible.
//
// A dependency naming a plugin absent from metas is not an edge and not a
// cycle; the load phase surfaces it as DependencyUnmet for the dependent.
//
// Nodes left after the queue drains are the cycle members plus anything
// depending on them, transitively. Draining the reversed graph leaves the
// cycle members plus anything they depend on; the intersection is exactly
// the cycle. All leftover nodes are excluded from the returned order.
func Resolve(metas []*Metadata) ([]*Metadata, *CircularDependencyError) {
	index := make(map[string]int, len(metas))
	for i, m := range metas {
		index[m.Name] = i
	}

	deps := make(map[string][]string, len(metas))
	dependents := make(map[string][]string, len(metas))
	for _, m := range metas {
		for _, dep := range m.DependsOn {
			if _, known := index[dep]; !known {
				log.Debug().
					Str("event", "dependency_absent").
					Str("plugin", m.Name).
					Str("dependency", dep).
					Msg("dependency not in validated set")

				continue
			}
			deps[m.Name] = append(deps[m.Name], dep)
			dependents[dep] = append(dependents[dep], m.Name)
		}
	}

	order, leftover := drain(metas, index, deps, dependents)
	if len(leftover) == 0 {
		return order, nil
	}

	_, reverseLeftover := drain(metas, index, dependents, deps)

	members := make([]string, 0, len(leftover))
	for name := range leftover {
		if _, ok := reverseLeftover[name]; ok {
			members = append(members, name)
		}
	}
	sort.Strings(members)

	return order, &CircularDependencyError{Members: members}
}

// drain removes zero-in-degree nodes until none remain, earliest-discovered
// first, and reports the names that never drained.
func drain(
	metas []*Metadata,
	index map[string]int,
	deps map[string][]string,
	dependents map[string][]string,
) ([]*Metadata, map[string]struct{}) {
	inDegree := make(map[string]int, len(metas))
	for _, m := range metas {
		inDegree[m.Name] = len(deps[m.Name])
	}

	var ready []string
	for _, m := range metas {
		if inDegree[m.Name] == 0 {
			ready = append(ready, m.Name)
		}
	}

	order := make([]*Metadata, 0, len(metas))
	for len(ready) > 0 {
		best := 0
		for i := 1; i < len(ready); i++ {
			if index[ready[i]] < index[ready[best]] {
				best = i
			}
		}
		name := ready[best]
		ready = append(ready[:best], ready[best+1:]...)

		order = append(order, metas[index[name]])
		for _, next := range dependents[name] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	leftover := make(map[string]struct{})
	if len(order) < len(metas) {
		drained := make(map[string]struct{}, len(order))
		for _, m := range order {
			drained[m.Name] = struct{}{}
		}
		for _, m := range metas {
			if _, ok := drained[m.Name]; !ok {
				leftover[m.Name] = struct{}{}
			}
		}
	}

	return order, leftover
}

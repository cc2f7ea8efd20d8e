// Package closure computes the set of functions reachable from a seed set
// through the call graph and the set of data types those functions use.
package closure

import (
	"fmt"
	"sort"

	"github.com/zheng/rdecomp/internal/program"
)

// FunctionSource answers the call-graph queries needed by Functions
type FunctionSource interface {
	CalledFunctions(id program.FunctionID) ([]program.FunctionID, error)
	VariablesOf(id program.FunctionID) ([]program.Variable, error)
}

// FunctionSet is the outcome of a function closure expansion
type FunctionSet struct {
	Visited map[program.FunctionID]struct{}
	// TypeSeeds holds the type of every variable of every visited function,
	// duplicates included.
	TypeSeeds []program.TypeID
}

// Contains reports whether id was reached
func (s *FunctionSet) Contains(id program.FunctionID) bool {
	_, ok := s.Visited[id]
	return ok
}

// Sorted returns the visited functions ordered by entry address
func (s *FunctionSet) Sorted() []program.FunctionID {
	return sortedFunctions(s.Visited)
}

// Functions expands seeds to every function transitively reachable through
// call edges. Each function is queried exactly once, however often it is
// discovered.
func Functions(src FunctionSource, seeds []program.FunctionID) (*FunctionSet, error) {
	set := &FunctionSet{Visited: make(map[program.FunctionID]struct{})}

	pending := make([]program.FunctionID, len(seeds))
	copy(pending, seeds)

	for len(pending) > 0 {
		id := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if _, seen := set.Visited[id]; seen {
			continue
		}
		set.Visited[id] = struct{}{}

		callees, err := src.CalledFunctions(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get functions called by %s: %w", id, err)
		}
		pending = append(pending, callees...)

		vars, err := src.VariablesOf(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get variables of %s: %w", id, err)
		}
		for _, v := range vars {
			set.TypeSeeds = append(set.TypeSeeds, v.Type)
		}
	}

	return set, nil
}

func sortedFunctions(set map[program.FunctionID]struct{}) []program.FunctionID {
	ids := make([]program.FunctionID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

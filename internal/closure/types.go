package closure

import (
	"fmt"
	"sort"

	"github.com/zheng/rdecomp/internal/program"
)

// TypeSource answers data type queries needed by Types
type TypeSource interface {
	DataType(id program.TypeID) (*program.DataType, error)
}

// TypeSets partitions the reachable data types.
// Structs and Enums are disjoint subsets of All.
type TypeSets struct {
	All     map[program.TypeID]*program.DataType
	Structs map[program.TypeID]*program.DataType
	Enums   map[program.TypeID]*program.DataType
}

// Types expands seeds through pointer/array element and struct member edges.
// A type is classified into exactly one bucket the first time it is visited.
func Types(src TypeSource, seeds []program.TypeID) (*TypeSets, error) {
	sets := &TypeSets{
		All:     make(map[program.TypeID]*program.DataType),
		Structs: make(map[program.TypeID]*program.DataType),
		Enums:   make(map[program.TypeID]*program.DataType),
	}

	pending := make([]program.TypeID, len(seeds))
	copy(pending, seeds)

	for len(pending) > 0 {
		id := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if _, seen := sets.All[id]; seen {
			continue
		}

		dt, err := src.DataType(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get data type %q: %w", id, err)
		}
		sets.All[id] = dt

		switch dt.Kind {
		case program.KindEnum:
			sets.Enums[id] = dt
		case program.KindPointer, program.KindArray:
			pending = append(pending, dt.Elem)
		case program.KindStruct:
			sets.Structs[id] = dt
			for _, m := range dt.Members {
				pending = append(pending, m.Type)
			}
		case program.KindPrimitive:
		default:
			return nil, fmt.Errorf("data type %q has unknown kind %q", id, dt.Kind)
		}
	}

	return sets, nil
}

// Sorted returns the types of a set ordered by display name, then id
func Sorted(set map[program.TypeID]*program.DataType) []*program.DataType {
	types := make([]*program.DataType, 0, len(set))
	for _, dt := range set {
		types = append(types, dt)
	}
	sort.Slice(types, func(i, j int) bool {
		if types[i].Name != types[j].Name {
			return types[i].Name < types[j].Name
		}
		return types[i].ID < types[j].ID
	})
	return types
}

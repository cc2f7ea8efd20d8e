package emit

import (
	"fmt"
	"sort"

	"github.com/zheng/rdecomp/internal/closure"
	"github.com/zheng/rdecomp/internal/program"
)

// StructOrder selects how struct definitions are ordered
type StructOrder string

const (
	// OrderTopo emits a struct after every struct it embeds by value
	OrderTopo StructOrder = "topo"
	// OrderName emits structs sorted by display name only
	OrderName StructOrder = "name"
)

// ParseStructOrder validates a struct order name
func ParseStructOrder(s string) (StructOrder, error) {
	switch StructOrder(s) {
	case OrderTopo, OrderName:
		return StructOrder(s), nil
	case "":
		return OrderTopo, nil
	}
	return "", fmt.Errorf("unknown struct order %q (use topo or name)", s)
}

// orderStructs returns the structs of res in emission order, plus the names
// of structs caught in a by-value embedding cycle (emitted in name order
// after everything else).
func orderStructs(res *closure.Result, order StructOrder) ([]*program.DataType, []string) {
	byName := closure.Sorted(res.Structs)
	if order == OrderName {
		return byName, nil
	}

	index := make(map[program.TypeID]int, len(byName))
	for i, dt := range byName {
		index[dt.ID] = i
	}

	deps := func(i int) []int {
		var out []int
		seen := make(map[int]bool)
		for _, m := range byName[i].Members {
			id, ok := embeddedStruct(res, m.Type)
			if !ok {
				continue
			}
			j, ok := index[id]
			if !ok || j == i || seen[j] {
				continue
			}
			seen[j] = true
			out = append(out, j)
		}
		return out
	}

	idx, cyclic := topoSort(len(byName), deps)

	sorted := make([]*program.DataType, 0, len(byName))
	for _, i := range idx {
		sorted = append(sorted, byName[i])
	}
	var names []string
	for _, i := range cyclic {
		sorted = append(sorted, byName[i])
		names = append(names, byName[i].Name)
	}
	return sorted, names
}

// embeddedStruct follows array element types to find a struct stored by
// value. Pointers end the search: a pointer member needs no full layout.
func embeddedStruct(res *closure.Result, id program.TypeID) (program.TypeID, bool) {
	for depth := 0; depth < maxDeclaratorDepth; depth++ {
		dt, ok := res.Types[id]
		if !ok {
			return "", false
		}
		switch dt.Kind {
		case program.KindStruct:
			return dt.ID, true
		case program.KindArray:
			id = dt.Elem
		default:
			return "", false
		}
	}
	return "", false
}

// topoSort returns node indices in dependency order.
//
// depsFn(i) yields indices that must come before i. When several nodes are
// ready the smallest index goes first, so the result is deterministic.
// Nodes left over because of a cycle are returned separately, ascending.
func topoSort(n int, depsFn func(i int) []int) (order []int, cyclic []int) {
	if n <= 0 {
		return nil, nil
	}

	indeg := make([]int, n)
	out := make([][]int, n)

	for i := 0; i < n; i++ {
		for _, d := range depsFn(i) {
			indeg[i]++
			out[d] = append(out[d], i)
		}
	}

	var ready []int
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order = make([]int, 0, n)
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]

		order = append(order, i)
		for _, j := range out[i] {
			indeg[j]--
			if indeg[j] == 0 {
				// Insert while keeping ready sorted.
				k := sort.SearchInts(ready, j)
				ready = append(ready, 0)
				copy(ready[k+1:], ready[k:])
				ready[k] = j
			}
		}
	}

	if len(order) == n {
		return order, nil
	}
	for i := 0; i < n; i++ {
		if indeg[i] > 0 {
			cyclic = append(cyclic, i)
		}
	}
	return order, cyclic
}

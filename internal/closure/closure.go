package closure

import "github.com/zheng/rdecomp/internal/program"

// Source is everything Compute needs from the gateway
type Source interface {
	FunctionSource
	TypeSource
}

// Result is the fixpoint of both closures for one run.
// It is read-only once Compute returns.
type Result struct {
	Functions map[program.FunctionID]struct{}
	Types     map[program.TypeID]*program.DataType
	Structs   map[program.TypeID]*program.DataType
	Enums     map[program.TypeID]*program.DataType
}

// Compute runs the function closure to fixpoint, then the type closure
// seeded by every variable type the functions use.
func Compute(src Source, seeds []program.FunctionID) (*Result, error) {
	fns, err := Functions(src, seeds)
	if err != nil {
		return nil, err
	}

	types, err := Types(src, fns.TypeSeeds)
	if err != nil {
		return nil, err
	}

	return &Result{
		Functions: fns.Visited,
		Types:     types.All,
		Structs:   types.Structs,
		Enums:     types.Enums,
	}, nil
}

// SortedFunctions returns the reached functions ordered by entry address
func (r *Result) SortedFunctions() []program.FunctionID {
	return sortedFunctions(r.Functions)
}

// TypeName returns the display name of a reached type, or its id when the
// type was never visited.
func (r *Result) TypeName(id program.TypeID) string {
	if dt, ok := r.Types[id]; ok {
		return dt.Name
	}
	return string(id)
}

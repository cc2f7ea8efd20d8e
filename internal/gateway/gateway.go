// Package gateway defines the narrow interface through which the closures
// and the emitter query the analysis engine and its decompiler.
package gateway

import "github.com/zheng/rdecomp/internal/program"

// Gateway is the decompiler-side view of an analyzed program.
// Implementations are used by a single run at a time and need not be
// safe for concurrent use.
type Gateway interface {
	// ResolveFunction maps a user-supplied name or hex entry address to a
	// function. Returns program.ErrNotFound or program.ErrAmbiguous.
	ResolveFunction(ref string) (program.FunctionID, error)
	FunctionName(id program.FunctionID) (string, error)
	CalledFunctions(id program.FunctionID) ([]program.FunctionID, error)
	VariablesOf(id program.FunctionID) ([]program.Variable, error)
	DataType(id program.TypeID) (*program.DataType, error)
	SignatureText(id program.FunctionID) (string, error)
	BodyText(id program.FunctionID) (string, error)
}

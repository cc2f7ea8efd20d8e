package program

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a function or type does not exist
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous is returned when a name matches more than one function
	ErrAmbiguous = errors.New("ambiguous function name")
)

// DecompileError reports that the decompiler could not produce text for a function
type DecompileError struct {
	Function FunctionID
	Name     string
	Reason   string
}

func (e *DecompileError) Error() string {
	return fmt.Sprintf("decompiling %s @ %s: %s", e.Name, e.Function, e.Reason)
}

package program

import "fmt"

// FunctionID identifies a function by its entry address.
// Names may collide across a program, entry addresses may not.
type FunctionID uint64

// String renders the id the way disassemblers print addresses.
func (id FunctionID) String() string {
	return fmt.Sprintf("0x%x", uint64(id))
}

// Function is a decompiled function in the analyzed program
type Function struct {
	ID        FunctionID   `json:"id"`
	Name      string       `json:"name"`
	Signature string       `json:"signature"`
	Body      string       `json:"body"`
	Error     string       `json:"error,omitempty"` // decompiler failure message, if any
	Calls     []FunctionID `json:"calls"`
	Variables []Variable   `json:"variables"`
}

// Variable is a parameter or local of exactly one function.
// Its type is shared, so only the TypeID is held.
type Variable struct {
	Name  string `json:"name"`
	Type  TypeID `json:"type"`
	Param bool   `json:"param"`
}

package gateway

import "github.com/zheng/rdecomp/internal/program"

// Memory serves gateway queries straight from a loaded program export
type Memory struct {
	prog *program.Program
}

// NewMemory wraps an in-memory program
func NewMemory(prog *program.Program) *Memory {
	return &Memory{prog: prog}
}

func (m *Memory) ResolveFunction(ref string) (program.FunctionID, error) {
	return m.prog.Lookup(ref)
}

func (m *Memory) FunctionName(id program.FunctionID) (string, error) {
	fn, err := m.prog.Function(id)
	if err != nil {
		return "", err
	}
	return fn.Name, nil
}

func (m *Memory) CalledFunctions(id program.FunctionID) ([]program.FunctionID, error) {
	fn, err := m.prog.Function(id)
	if err != nil {
		return nil, err
	}
	return fn.Calls, nil
}

func (m *Memory) VariablesOf(id program.FunctionID) ([]program.Variable, error) {
	fn, err := m.prog.Function(id)
	if err != nil {
		return nil, err
	}
	return fn.Variables, nil
}

func (m *Memory) DataType(id program.TypeID) (*program.DataType, error) {
	return m.prog.Type(id)
}

func (m *Memory) SignatureText(id program.FunctionID) (string, error) {
	fn, err := m.decompiled(id)
	if err != nil {
		return "", err
	}
	return fn.Signature, nil
}

func (m *Memory) BodyText(id program.FunctionID) (string, error) {
	fn, err := m.decompiled(id)
	if err != nil {
		return "", err
	}
	return fn.Body, nil
}

func (m *Memory) decompiled(id program.FunctionID) (*program.Function, error) {
	fn, err := m.prog.Function(id)
	if err != nil {
		return nil, err
	}
	if fn.Error != "" {
		return nil, &program.DecompileError{Function: fn.ID, Name: fn.Name, Reason: fn.Error}
	}
	return fn, nil
}

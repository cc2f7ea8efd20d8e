// Package program holds the analyzed-program model shared by the gateway,
// the closures and the emitter.
package program

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Program is an in-memory index of an analyzed program's functions and types
type Program struct {
	Name      string
	functions map[FunctionID]*Function
	byName    map[string][]FunctionID
	types     map[TypeID]*DataType
}

// New creates an empty program
func New(name string) *Program {
	return &Program{
		Name:      name,
		functions: make(map[FunctionID]*Function),
		byName:    make(map[string][]FunctionID),
		types:     make(map[TypeID]*DataType),
	}
}

// AddFunction registers a function; entry addresses must be unique
func (p *Program) AddFunction(fn *Function) error {
	if _, ok := p.functions[fn.ID]; ok {
		return fmt.Errorf("duplicate function entry %s (%s)", fn.ID, fn.Name)
	}
	p.functions[fn.ID] = fn
	p.byName[fn.Name] = append(p.byName[fn.Name], fn.ID)
	return nil
}

// AddType registers a data type; ids must be unique
func (p *Program) AddType(t *DataType) error {
	if t.ID == "" {
		return fmt.Errorf("data type %q has no id", t.Name)
	}
	if _, ok := p.types[t.ID]; ok {
		return fmt.Errorf("duplicate data type %q", t.ID)
	}
	p.types[t.ID] = t
	return nil
}

// Function returns the function with the given entry address
func (p *Program) Function(id FunctionID) (*Function, error) {
	fn, ok := p.functions[id]
	if !ok {
		return nil, fmt.Errorf("function %s: %w", id, ErrNotFound)
	}
	return fn, nil
}

// Type returns the data type with the given id
func (p *Program) Type(id TypeID) (*DataType, error) {
	t, ok := p.types[id]
	if !ok {
		return nil, fmt.Errorf("data type %q: %w", id, ErrNotFound)
	}
	return t, nil
}

// Lookup resolves a function reference: a hexadecimal entry address is tried
// first, then the display name.
func (p *Program) Lookup(ref string) (FunctionID, error) {
	if addr, ok := ParseAddress(ref); ok {
		if _, exists := p.functions[FunctionID(addr)]; exists {
			return FunctionID(addr), nil
		}
	}
	return p.LookupName(ref)
}

// LookupName resolves a function by display name only. Identifiers taken
// from C text use it, since a name like "abc1" is also valid hex.
func (p *Program) LookupName(name string) (FunctionID, error) {
	ids := p.byName[name]
	switch len(ids) {
	case 0:
		return 0, fmt.Errorf("function %q: %w", name, ErrNotFound)
	case 1:
		return ids[0], nil
	}
	addrs := make([]string, len(ids))
	for i, id := range ids {
		addrs[i] = id.String()
	}
	return 0, fmt.Errorf("%w %q, found %d matches: %s", ErrAmbiguous, name, len(ids), strings.Join(addrs, ", "))
}

// Functions returns all functions ordered by entry address
func (p *Program) Functions() []*Function {
	fns := make([]*Function, 0, len(p.functions))
	for _, fn := range p.functions {
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i].ID < fns[j].ID })
	return fns
}

// Types returns all data types ordered by id
func (p *Program) Types() []*DataType {
	types := make([]*DataType, 0, len(p.types))
	for _, t := range p.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].ID < types[j].ID })
	return types
}

// Validate checks that every call target and type reference resolves
func (p *Program) Validate() error {
	var errs []error
	for _, fn := range p.Functions() {
		for _, callee := range fn.Calls {
			if _, ok := p.functions[callee]; !ok {
				errs = append(errs, fmt.Errorf("function %s calls unknown function %s", fn.Name, callee))
			}
		}
		for _, v := range fn.Variables {
			if _, ok := p.types[v.Type]; !ok {
				errs = append(errs, fmt.Errorf("variable %s of %s has unknown type %q", v.Name, fn.Name, v.Type))
			}
		}
	}
	for _, t := range p.Types() {
		for _, ref := range t.Refs() {
			if _, ok := p.types[ref]; !ok {
				errs = append(errs, fmt.Errorf("data type %q refers to unknown type %q", t.ID, ref))
			}
		}
	}
	return errors.Join(errs...)
}

// ParseAddress parses a hexadecimal address, with or without a 0x prefix.
// Bare hex must contain at least one decimal digit so that identifiers such
// as "add" or "face" stay names.
func ParseAddress(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits = s[2:]
	} else if !strings.ContainsAny(s, "0123456789") {
		return 0, false
	}
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

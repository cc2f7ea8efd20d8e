package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/zheng/rdecomp/internal/cparse"
	"github.com/zheng/rdecomp/internal/log"
	"github.com/zheng/rdecomp/internal/program"
)

// Format is the serialization of an export file
type Format string

const (
	FormatYAML    Format = "yaml"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// FormatOf picks the format from the file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".msgpack", ".mp":
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("unsupported export format %q (use .yaml, .json or .msgpack)", filepath.Ext(path))
}

// Decode reads one export document from r
func Decode(r io.Reader, format Format) (*Export, error) {
	var exp Export
	var err error
	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&exp)
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&exp)
	case FormatMsgpack:
		err = msgpack.NewDecoder(r).Decode(&exp)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s export: %w", format, err)
	}
	return &exp, nil
}

// Encode writes exp to w
func Encode(w io.Writer, exp *Export, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(exp); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(exp)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(exp)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// ReadFile decodes the export at path
func ReadFile(path string) (*Export, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()
	return Decode(f, format)
}

// Save writes exp to path in the format its extension names
func Save(path string, exp *Export) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export: %w", err)
	}
	if err := Encode(f, exp, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	return f.Close()
}

// Load reads the export at path and builds a validated program from it
func Load(path string, logger log.Logger) (*program.Program, error) {
	exp, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if exp.Program == "" {
		exp.Program = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return Build(exp, logger)
}

// Build converts an export into a program.
//
// Functions without a call list get one derived from their body; callees
// that are not functions of the program (imports, libc) are dropped.
// Functions without a signature get the prototype parsed from their body.
func Build(exp *Export, logger log.Logger) (*program.Program, error) {
	if logger == nil {
		logger = log.Discard()
	}
	prog := program.New(exp.Program)

	types := newTypeIndex(exp.Types)
	for i := range exp.Types {
		dt, err := types.convert(&exp.Types[i])
		if err != nil {
			return nil, err
		}
		if err := prog.AddType(dt); err != nil {
			return nil, err
		}
	}

	fns := make([]*program.Function, 0, len(exp.Functions))
	for i := range exp.Functions {
		ef := &exp.Functions[i]
		addr, ok := program.ParseAddress(ef.Entry)
		if !ok {
			return nil, fmt.Errorf("function %q has invalid entry address %q", ef.Name, ef.Entry)
		}
		fn := &program.Function{
			ID:        program.FunctionID(addr),
			Name:      ef.Name,
			Signature: ef.Signature,
			Body:      ef.Body,
			Error:     ef.Error,
		}
		for _, v := range ef.Variables {
			fn.Variables = append(fn.Variables, program.Variable{
				Name:  v.Name,
				Type:  types.resolve(v.Type),
				Param: v.Param,
			})
		}
		if err := prog.AddFunction(fn); err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}

	// Calls are resolved once every function is registered.
	var errs []error
	for i, fn := range fns {
		ef := &exp.Functions[i]

		var parsed *cparse.Function
		if fn.Body != "" && fn.Error == "" && (len(ef.Calls) == 0 || fn.Signature == "") {
			p, err := cparse.ParseFunction(fn.Body)
			if err != nil {
				logger.Warn("could not parse function body", "function", fn.Name, "error", err)
			}
			parsed = p
		}

		if len(ef.Calls) > 0 {
			for _, ref := range ef.Calls {
				id, err := prog.Lookup(ref)
				if err != nil {
					errs = append(errs, fmt.Errorf("function %s calls %q: %w", fn.Name, ref, err))
					continue
				}
				fn.Calls = append(fn.Calls, id)
			}
		} else if parsed != nil {
			for _, name := range parsed.Callees {
				id, err := prog.LookupName(name)
				if err != nil {
					logger.Debug("dropping external callee", "function", fn.Name, "callee", name)
					continue
				}
				fn.Calls = append(fn.Calls, id)
			}
		}

		if fn.Signature == "" && fn.Error == "" {
			if parsed != nil && parsed.Signature != "" {
				fn.Signature = parsed.Signature
			} else {
				fn.Error = "no signature available"
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program export: %w", err)
	}
	return prog, nil
}

// typeIndex maps the references used inside an export onto TypeIDs
type typeIndex struct {
	ids    map[program.TypeID]struct{}
	byName map[string][]program.TypeID
}

func newTypeIndex(types []ExportType) *typeIndex {
	idx := &typeIndex{
		ids:    make(map[program.TypeID]struct{}, len(types)),
		byName: make(map[string][]program.TypeID),
	}
	for i := range types {
		id := typeID(&types[i])
		idx.ids[id] = struct{}{}
		idx.byName[types[i].Name] = append(idx.byName[types[i].Name], id)
	}
	return idx
}

// resolve prefers an exact id match, then a unique display name. Anything
// else is returned unchanged and reported by Validate.
func (idx *typeIndex) resolve(ref string) program.TypeID {
	if _, ok := idx.ids[program.TypeID(ref)]; ok {
		return program.TypeID(ref)
	}
	if ids := idx.byName[ref]; len(ids) == 1 {
		return ids[0]
	}
	return program.TypeID(ref)
}

func (idx *typeIndex) convert(et *ExportType) (*program.DataType, error) {
	kind, err := program.ParseKind(et.Kind)
	if err != nil {
		return nil, fmt.Errorf("data type %q: %w", et.Name, err)
	}
	dt := &program.DataType{
		ID:     typeID(et),
		Kind:   kind,
		Name:   et.Name,
		Length: et.Length,
	}

	switch kind {
	case program.KindPointer, program.KindArray:
		if et.Elem == "" {
			return nil, fmt.Errorf("%s type %q has no element type", kind, et.Name)
		}
		dt.Elem = idx.resolve(et.Elem)
	case program.KindStruct:
		for _, m := range et.Members {
			dt.Members = append(dt.Members, program.Member{
				Name:    m.Name,
				Type:    idx.resolve(m.Type),
				Offset:  m.Offset,
				Comment: m.Comment,
			})
		}
	case program.KindEnum:
		for _, v := range et.Values {
			dt.Values = append(dt.Values, program.EnumValue(v))
		}
	}
	return dt, nil
}

func typeID(et *ExportType) program.TypeID {
	if et.Path != "" {
		return program.TypeID(et.Path)
	}
	return program.TypeID(et.Name)
}

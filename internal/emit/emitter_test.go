package emit

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/rdecomp/internal/closure"
	"github.com/zheng/rdecomp/internal/program"
)

type textSource struct {
	sigs   map[program.FunctionID]string
	bodies map[program.FunctionID]string
}

func (s textSource) SignatureText(id program.FunctionID) (string, error) {
	sig, ok := s.sigs[id]
	if !ok {
		return "", program.ErrNotFound
	}
	return sig, nil
}

func (s textSource) BodyText(id program.FunctionID) (string, error) {
	body, ok := s.bodies[id]
	if !ok {
		return "", &program.DecompileError{Function: id, Name: "f", Reason: "timeout"}
	}
	return body, nil
}

func result(types ...*program.DataType) *closure.Result {
	res := &closure.Result{
		Functions: make(map[program.FunctionID]struct{}),
		Types:     make(map[program.TypeID]*program.DataType),
		Structs:   make(map[program.TypeID]*program.DataType),
		Enums:     make(map[program.TypeID]*program.DataType),
	}
	for _, dt := range types {
		res.Types[dt.ID] = dt
		switch dt.Kind {
		case program.KindStruct:
			res.Structs[dt.ID] = dt
		case program.KindEnum:
			res.Enums[dt.ID] = dt
		}
	}
	return res
}

func structType(name string, members ...program.Member) *program.DataType {
	return &program.DataType{ID: program.TypeID(name), Name: name, Kind: program.KindStruct, Members: members}
}

func primType(name string) *program.DataType {
	return &program.DataType{ID: program.TypeID(name), Name: name, Kind: program.KindPrimitive}
}

func TestEmitPointScenario(t *testing.T) {
	res := result(
		primType("int"),
		structType("Point", program.Member{Name: "x", Type: "int"}, program.Member{Name: "y", Type: "int"}),
	)
	res.Functions[0x401000] = struct{}{}
	res.Functions[0x401100] = struct{}{}

	src := textSource{
		sigs: map[program.FunctionID]string{
			0x401000: "int main(void)",
			0x401100: "void helper(Point *p);",
		},
		bodies: map[program.FunctionID]string{
			0x401000: "\nint main(void)\n\n{\n  helper((Point *)0x0);\n  return 0;\n}\n",
			0x401100: "\nvoid helper(Point *p)\n\n{\n  p->x = 1;\n  return;\n}",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewEmitter(src, DefaultOptions()).Emit(&buf, res))

	want := `//
// enums
//

//
// structs
//

struct Point
{
	int x;
	int y;
};
typedef Point Point;

//
// function prototypes
//

int main(void);
void helper(Point *p);

//
// functions
//


int main(void)

{
  helper((Point *)0x0);
  return 0;
}


void helper(Point *p)

{
  p->x = 1;
  return;
}

`
	assert.Equal(t, want, buf.String())
}

func TestEmitEnums(t *testing.T) {
	res := result(
		&program.DataType{ID: "Mode", Name: "Mode", Kind: program.KindEnum, Values: []program.EnumValue{
			{Name: "MODE_READ", Value: 1},
			{Name: "MODE_WRITE", Value: 2, Comment: "opens for\nwriting"},
		}},
		&program.DataType{ID: "Color", Name: "Color", Kind: program.KindEnum, Values: []program.EnumValue{
			{Name: "RED", Value: -1, Comment: "sentinel"},
		}},
	)

	var buf bytes.Buffer
	NewEmitter(textSource{}, DefaultOptions()).writeEnums(&buf, res)

	want := `//
// enums
//

typedef enum
{
	RED = -1, // sentinel
} Color;

typedef enum
{
	MODE_READ = 1,
	MODE_WRITE = 2, // opens for writing
} Mode;

`
	assert.Equal(t, want, buf.String())
}

func TestEmitStructMembers(t *testing.T) {
	res := result(
		primType("int"),
		primType("char"),
		&program.DataType{ID: "char *", Name: "char *", Kind: program.KindPointer, Elem: "char"},
		&program.DataType{ID: "int[3]", Name: "int[3]", Kind: program.KindArray, Elem: "int", Length: 3},
		&program.DataType{ID: "int[3][2]", Name: "int[3][2]", Kind: program.KindArray, Elem: "int[3]", Length: 2},
		&program.DataType{ID: "char[0]", Name: "char[0]", Kind: program.KindArray, Elem: "char"},
		structType("Rec",
			program.Member{Name: "name", Type: "char *", Comment: "owned"},
			program.Member{Name: "grid", Type: "int[3][2]"},
			program.Member{Offset: 0x20, Type: "int"},
			program.Member{Name: "tail", Type: "char[0]"},
		),
	)

	var buf bytes.Buffer
	NewEmitter(textSource{}, DefaultOptions()).writeStructs(&buf, res)

	assert.Contains(t, buf.String(), `struct Rec
{
	char * name; // owned
	int grid[2][3];
	int field_0x20;
	char tail[];
};
typedef Rec Rec;
`)
}

func TestStructOrderTopological(t *testing.T) {
	res := result(
		primType("int"),
		&program.DataType{ID: "Inner *", Name: "Inner *", Kind: program.KindPointer, Elem: "Inner"},
		&program.DataType{ID: "Mid[2]", Name: "Mid[2]", Kind: program.KindArray, Elem: "Mid", Length: 2},
		// Alpha holds Mid by value (through an array), Mid holds Inner by value
		structType("Alpha", program.Member{Name: "mids", Type: "Mid[2]"}),
		structType("Mid", program.Member{Name: "in", Type: "Inner"}, program.Member{Name: "a", Type: "int"}),
		structType("Inner", program.Member{Name: "v", Type: "int"}),
		// Back only points at Inner, so it keeps its name position
		structType("Back", program.Member{Name: "in", Type: "Inner *"}),
	)

	topo, cyclic := orderStructs(res, OrderTopo)
	assert.Empty(t, cyclic)
	assert.Equal(t, []string{"Back", "Inner", "Mid", "Alpha"}, names(topo))

	byName, _ := orderStructs(res, OrderName)
	assert.Equal(t, []string{"Alpha", "Back", "Inner", "Mid"}, names(byName))
}

func TestStructOrderCycle(t *testing.T) {
	res := result(
		structType("B", program.Member{Name: "a", Type: "A"}),
		structType("A", program.Member{Name: "b", Type: "B"}),
		structType("C", program.Member{Name: "c", Type: "C"}),
	)

	sorted, cyclic := orderStructs(res, OrderTopo)
	assert.Equal(t, []string{"C", "A", "B"}, names(sorted))
	assert.Equal(t, []string{"A", "B"}, cyclic)
}

func TestEmitDeterministic(t *testing.T) {
	res := result(
		primType("int"),
		structType("Z", program.Member{Name: "v", Type: "int"}),
		structType("Y", program.Member{Name: "v", Type: "int"}),
		structType("X", program.Member{Name: "v", Type: "int"}),
	)
	src := textSource{sigs: map[program.FunctionID]string{}, bodies: map[program.FunctionID]string{}}
	for _, id := range []program.FunctionID{0x30, 0x10, 0x20} {
		res.Functions[id] = struct{}{}
		src.sigs[id] = "void f" + id.String() + "(void)"
		src.bodies[id] = "void f" + id.String() + "(void) {}\n"
	}

	var first, second bytes.Buffer
	require.NoError(t, NewEmitter(src, DefaultOptions()).Emit(&first, res))
	require.NoError(t, NewEmitter(src, DefaultOptions()).Emit(&second, res))
	assert.Equal(t, first.String(), second.String())
	assert.Less(t, bytes.Index(first.Bytes(), []byte("void f0x10(void);")), bytes.Index(first.Bytes(), []byte("void f0x20(void);")))
}

func TestEmitGatewayFailureWritesNothing(t *testing.T) {
	res := result()
	res.Functions[0x10] = struct{}{}
	src := textSource{sigs: map[program.FunctionID]string{0x10: "void f(void)"}}

	var buf bytes.Buffer
	err := NewEmitter(src, DefaultOptions()).Emit(&buf, res)
	require.Error(t, err)

	var de *program.DecompileError
	assert.True(t, errors.As(err, &de))
	assert.Zero(t, buf.Len())
}

func TestPrototypeLine(t *testing.T) {
	assert.Equal(t, "int f(void);", prototypeLine("  int f(void)\n"))
	assert.Equal(t, "int f(void);", prototypeLine("int f(void);"))
	assert.Equal(t, "/* f: signature unavailable */", prototypeLine("/* f: signature unavailable */"))
}

func TestParseStructOrder(t *testing.T) {
	o, err := ParseStructOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderTopo, o)

	o, err = ParseStructOrder("name")
	require.NoError(t, err)
	assert.Equal(t, OrderName, o)

	_, err = ParseStructOrder("size")
	assert.Error(t, err)
}

func names(types []*program.DataType) []string {
	out := make([]string, len(types))
	for i, dt := range types {
		out[i] = dt.Name
	}
	return out
}

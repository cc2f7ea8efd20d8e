package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/rdecomp/internal/program"
)

const pointExport = `program: point
functions:
  - name: main
    entry: "0x401000"
    signature: int main(void)
    body: |
      int main(void)
      {
        Point pt;
        helper(&pt);
        return 0;
      }
    calls: [helper]
    variables:
      - {name: pt, type: Point}
  - name: helper
    entry: "0x401100"
    signature: void helper(Point *p)
    body: |
      void helper(Point *p)
      {
        p->x = 1;
      }
    variables:
      - {name: p, type: Point *, param: true}
types:
  - {name: int, kind: primitive}
  - name: Point
    path: /geom/Point
    kind: structure
    members:
      - {name: x, type: int, offset: 0}
      - {name: y, type: int, offset: 4, comment: vertical}
  - {name: Point *, path: /geom/Point *, kind: pointer, elem: /geom/Point}
`

func TestDecodeYAML(t *testing.T) {
	exp, err := Decode(strings.NewReader(pointExport), FormatYAML)
	require.NoError(t, err)

	prog, err := Build(exp, nil)
	require.NoError(t, err)

	main, err := prog.Function(0x401000)
	require.NoError(t, err)
	assert.Equal(t, "main", main.Name)
	assert.Equal(t, []program.FunctionID{0x401100}, main.Calls)

	// referenced by display name, stored under its path
	require.Len(t, main.Variables, 1)
	assert.Equal(t, program.TypeID("/geom/Point"), main.Variables[0].Type)

	point, err := prog.Type("/geom/Point")
	require.NoError(t, err)
	assert.Equal(t, program.KindStruct, point.Kind)
	assert.Equal(t, "vertical", point.Members[1].Comment)
	assert.Equal(t, program.TypeID("int"), point.Members[0].Type)

	ptr, err := prog.Type("/geom/Point *")
	require.NoError(t, err)
	assert.Equal(t, program.TypeID("/geom/Point"), ptr.Elem)
}

func TestBuildDerivesFromBody(t *testing.T) {
	exp := &Export{
		Program: "derived",
		Functions: []ExportFunction{
			{
				Name:  "run",
				Entry: "0x1000",
				Body:  "int run(int n)\n{\n  step(n);\n  printf(\"%d\", n);\n  return finish();\n}\n",
			},
			{Name: "step", Entry: "1010", Signature: "void step(int n)"},
			{Name: "finish", Entry: "0x1020", Signature: "int finish(void)"},
		},
	}

	prog, err := Build(exp, nil)
	require.NoError(t, err)

	run, err := prog.Function(0x1000)
	require.NoError(t, err)
	assert.Equal(t, "int run(int n)", run.Signature)
	// printf is not part of the program
	assert.ElementsMatch(t, []program.FunctionID{0x1010, 0x1020}, run.Calls)
}

func TestBuildBodyCalleesMatchByName(t *testing.T) {
	exp := &Export{Functions: []ExportFunction{
		{Name: "other", Entry: "0xabc1", Signature: "void other(void)"},
		{Name: "abc1", Entry: "0x2000", Signature: "void abc1(void)"},
		{Name: "run", Entry: "0x3000", Body: "void run(void)\n{\n  abc1();\n  beef();\n}\n"},
		{Name: "tail", Entry: "0xbeef", Signature: "void tail(void)"},
	}}

	prog, err := Build(exp, nil)
	require.NoError(t, err)

	run, err := prog.Function(0x3000)
	require.NoError(t, err)
	// abc1 is the function named abc1, and beef is an unknown external name
	assert.Equal(t, []program.FunctionID{0x2000}, run.Calls)
}

func TestBuildMissingSignatureBecomesError(t *testing.T) {
	exp := &Export{Functions: []ExportFunction{{Name: "stub", Entry: "0x10"}}}

	prog, err := Build(exp, nil)
	require.NoError(t, err)

	fn, err := prog.Function(0x10)
	require.NoError(t, err)
	assert.NotEmpty(t, fn.Error)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name        string
		exp         *Export
		errContains string
	}{
		{
			name:        "bad entry",
			exp:         &Export{Functions: []ExportFunction{{Name: "f", Entry: "main"}}},
			errContains: "invalid entry address",
		},
		{
			name: "duplicate entry",
			exp: &Export{Functions: []ExportFunction{
				{Name: "f", Entry: "0x10", Signature: "void f(void)"},
				{Name: "g", Entry: "0x10", Signature: "void g(void)"},
			}},
			errContains: "duplicate function",
		},
		{
			name: "unknown callee",
			exp: &Export{Functions: []ExportFunction{
				{Name: "f", Entry: "0x10", Signature: "void f(void)", Calls: []string{"nowhere"}},
			}},
			errContains: "calls \"nowhere\"",
		},
		{
			name: "unknown variable type",
			exp: &Export{Functions: []ExportFunction{
				{Name: "f", Entry: "0x10", Signature: "void f(void)", Variables: []ExportVariable{{Name: "v", Type: "Widget"}}},
			}},
			errContains: "unknown type \"Widget\"",
		},
		{
			name:        "unknown kind",
			exp:         &Export{Types: []ExportType{{Name: "T", Kind: "bitfield"}}},
			errContains: "unknown data type kind",
		},
		{
			name:        "pointer without element",
			exp:         &Export{Types: []ExportType{{Name: "T *", Kind: "pointer"}}},
			errContains: "no element type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.exp, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestBuildAmbiguousCallee(t *testing.T) {
	exp := &Export{Functions: []ExportFunction{
		{Name: "dup", Entry: "0x10", Signature: "void dup(void)"},
		{Name: "dup", Entry: "0x20", Signature: "void dup(void)"},
		{Name: "caller", Entry: "0x30", Signature: "void caller(void)", Calls: []string{"dup"}},
	}}
	_, err := Build(exp, nil)
	assert.True(t, errors.Is(err, program.ErrAmbiguous))

	// an address reference disambiguates
	exp.Functions[2].Calls = []string{"0x20"}
	prog, err := Build(exp, nil)
	require.NoError(t, err)
	caller, _ := prog.Function(0x30)
	assert.Equal(t, []program.FunctionID{0x20}, caller.Calls)
}

func TestSaveAndLoad(t *testing.T) {
	exp, err := Decode(strings.NewReader(pointExport), FormatYAML)
	require.NoError(t, err)

	for _, ext := range []string{".yaml", ".json", ".msgpack"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "point"+ext)
			require.NoError(t, Save(path, exp))

			prog, err := Load(path, nil)
			require.NoError(t, err)
			assert.Equal(t, "point", prog.Name)
			assert.Len(t, prog.Functions(), 2)
			assert.Len(t, prog.Types(), 3)
		})
	}
}

func TestLoadDefaultsProgramName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firmware.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"functions": [{"name": "f", "entry": "0x10", "signature": "void f(void)"}]}`), 0644))

	prog, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "firmware", prog.Name)
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("a/b.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = FormatOf("x.mp")
	require.NoError(t, err)
	assert.Equal(t, FormatMsgpack, f)

	_, err = FormatOf("x.xml")
	assert.Error(t, err)
}

package display

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zheng/rdecomp/internal/closure"
	"github.com/zheng/rdecomp/internal/program"
	"github.com/zheng/rdecomp/internal/storage"
)

func TestShortSignature(t *testing.T) {
	assert.Equal(t, "int main(int argc, char **argv)", ShortSignature("int  main(int argc,\n  char **argv)", 0))
	assert.Equal(t, "void very_lo...", ShortSignature("void very_long_name(void)", 15))
}

func TestFormatFunctionTable(t *testing.T) {
	got := FormatFunctionTable([]*storage.FunctionSummary{
		{ID: 0x401000, Name: "main", Signature: "int main(void)"},
		{ID: 0x10, Name: "crash", Error: "bad data"},
	})
	want := "0x401000  main   int main(void)\n" +
		"0x10      crash  !! bad data\n"
	assert.Equal(t, want, got)
}

func TestFormatReach(t *testing.T) {
	got := FormatReach("main", []*storage.FunctionSummary{
		{ID: 0x20, Name: "a", Depth: 1},
		{ID: 0x30, Name: "b", Depth: 1},
		{ID: 0x40, Name: "c", Depth: 2},
	})
	want := "main\n" +
		"├── depth 1 (2)\n" +
		"│   ├── 0x20  a\n" +
		"│   └── 0x30  b\n" +
		"└── depth 2 (1)\n" +
		"    └── 0x40  c\n"
	assert.Equal(t, want, got)
}

func TestFormatClosure(t *testing.T) {
	point := &program.DataType{ID: "/geom/Point", Name: "Point", Kind: program.KindStruct}
	color := &program.DataType{ID: "Color", Name: "Color", Kind: program.KindEnum}
	integer := &program.DataType{ID: "int", Name: "int", Kind: program.KindPrimitive}
	res := &closure.Result{
		Functions: map[program.FunctionID]struct{}{0x100: {}, 0x20: {}},
		Types:     map[program.TypeID]*program.DataType{point.ID: point, color.ID: color, integer.ID: integer},
		Structs:   map[program.TypeID]*program.DataType{point.ID: point},
		Enums:     map[program.TypeID]*program.DataType{color.ID: color},
	}
	names := map[program.FunctionID]string{0x100: "main", 0x20: "helper"}

	got := FormatClosure(res, func(id program.FunctionID) string { return names[id] })
	want := "functions (2)\n" +
		"  0x20   helper\n" +
		"  0x100  main\n" +
		"structs (1)\n" +
		"  Point  [/geom/Point]\n" +
		"enums (1)\n" +
		"  Color\n" +
		"other types (1)\n" +
		"  int\n"
	assert.Equal(t, want, got)
}

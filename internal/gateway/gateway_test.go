package gateway

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/rdecomp/internal/program"
)

func sampleProgram(t *testing.T) *program.Program {
	t.Helper()
	p := program.New("sample")
	require.NoError(t, p.AddType(&program.DataType{ID: "int", Name: "int", Kind: program.KindPrimitive}))
	require.NoError(t, p.AddFunction(&program.Function{
		ID:        0x1000,
		Name:      "main",
		Signature: "int main(void)",
		Body:      "int main(void)\n{\n  return helper();\n}\n",
		Calls:     []program.FunctionID{0x2000},
		Variables: []program.Variable{{Name: "ret", Type: "int"}},
	}))
	require.NoError(t, p.AddFunction(&program.Function{
		ID:    0x2000,
		Name:  "helper",
		Error: "bad instruction at 0x2004",
	}))
	return p
}

func TestMemoryGateway(t *testing.T) {
	gw := NewMemory(sampleProgram(t))

	id, err := gw.ResolveFunction("main")
	require.NoError(t, err)
	assert.Equal(t, program.FunctionID(0x1000), id)

	name, err := gw.FunctionName(0x2000)
	require.NoError(t, err)
	assert.Equal(t, "helper", name)

	calls, err := gw.CalledFunctions(id)
	require.NoError(t, err)
	assert.Equal(t, []program.FunctionID{0x2000}, calls)

	vars, err := gw.VariablesOf(id)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, program.TypeID("int"), vars[0].Type)

	sig, err := gw.SignatureText(id)
	require.NoError(t, err)
	assert.Equal(t, "int main(void)", sig)

	_, err = gw.BodyText(0x2000)
	var de *program.DecompileError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "helper", de.Name)

	_, err = gw.DataType("missing")
	assert.True(t, errors.Is(err, program.ErrNotFound))
}

func TestTolerantPlaceholders(t *testing.T) {
	var reported []error
	gw := NewTolerant(NewMemory(sampleProgram(t)), func(err error) {
		reported = append(reported, err)
	})

	body, err := gw.BodyText(0x2000)
	require.NoError(t, err)
	assert.Contains(t, body, "helper @ 0x2000: decompilation failed")
	assert.Contains(t, body, "bad instruction at 0x2004")

	sig, err := gw.SignatureText(0x2000)
	require.NoError(t, err)
	assert.Equal(t, "/* helper @ 0x2000: signature unavailable */", sig)

	assert.Equal(t, 1, gw.Failures())
	assert.Len(t, reported, 1)

	// errors other than decompiler failures are not masked
	_, err = gw.BodyText(0x9999)
	assert.True(t, errors.Is(err, program.ErrNotFound))
}

func TestTolerantPlaceholderEscapesReason(t *testing.T) {
	p := program.New("sample")
	require.NoError(t, p.AddFunction(&program.Function{ID: 0x10, Name: "f", Error: "bad block at */ 0x14\nstack depth mismatch"}))
	gw := NewTolerant(NewMemory(p), nil)

	body, err := gw.BodyText(0x10)
	require.NoError(t, err)
	assert.Equal(t, "/*\n * f @ 0x10: decompilation failed\n * bad block at * / 0x14\n * stack depth mismatch\n */\n", body)
	assert.Equal(t, 1, strings.Count(body, "*/"))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	p, err = ParsePolicy("placeholder")
	require.NoError(t, err)
	assert.Equal(t, PolicyPlaceholder, p)

	_, err = ParsePolicy("skip")
	assert.Error(t, err)

	mem := NewMemory(sampleProgram(t))
	assert.Same(t, mem, WithPolicy(mem, PolicyAbort, nil))
	_, ok := WithPolicy(mem, PolicyPlaceholder, nil).(*Tolerant)
	assert.True(t, ok)
}

package cparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFunction(t *testing.T) {
	body := `
/* WARNING: Unknown calling convention */

int process(Point *p, int count)

{
  int total;

  total = helper(p->x);
  total = total + helper(count);
  log_value(total);
  (*p->callback)(total);
  return total;
}
`
	fn, err := ParseFunction(body)
	require.NoError(t, err)

	assert.Equal(t, "process", fn.Name)
	assert.Equal(t, "int process(Point *p, int count)", fn.Signature)
	assert.Equal(t, []string{"helper", "log_value"}, fn.Callees)
}

func TestParsePointerReturn(t *testing.T) {
	fn, err := ParseFunction("char * dup_name(char *src)\n{\n  return strdup(src);\n}\n")
	require.NoError(t, err)

	assert.Equal(t, "dup_name", fn.Name)
	assert.Equal(t, "char * dup_name(char *src)", fn.Signature)
	assert.Equal(t, []string{"strdup"}, fn.Callees)
}

func TestSignatureNoDefinition(t *testing.T) {
	_, err := Signature("int x = 3;")
	assert.Error(t, err)
}

package seeds

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/rdecomp/internal/log"
	"github.com/zheng/rdecomp/internal/program"
)

type mapResolver map[string]program.FunctionID

func (m mapResolver) ResolveFunction(ref string) (program.FunctionID, error) {
	switch ref {
	case "dup":
		return 0, fmt.Errorf("%w %q", program.ErrAmbiguous, ref)
	case "broken":
		return 0, errors.New("database is locked")
	}
	id, ok := m[ref]
	if !ok {
		return 0, fmt.Errorf("function %q: %w", ref, program.ErrNotFound)
	}
	return id, nil
}

func TestRead(t *testing.T) {
	refs, err := Read(strings.NewReader("  main \n\n# entry points\n0x401000\r\n\thelper\t\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "0x401000", "helper"}, refs)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.txt")
	require.NoError(t, os.WriteFile(path, []byte("main\n"), 0644))

	refs, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, refs)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	var out bytes.Buffer
	logger := log.New(log.Config{Level: log.InfoLevel, Output: &out})

	r := mapResolver{"main": 0x401000, "helper": 0x401100}
	ids, unresolved, err := Resolve(r, []string{"main", "nope", "dup", "helper", "main"}, logger)
	require.NoError(t, err)

	assert.Equal(t, []program.FunctionID{0x401000, 0x401100, 0x401000}, ids)
	assert.Equal(t, []string{"nope", "dup"}, unresolved)
	assert.Contains(t, out.String(), "Function nope not found, skipping.")
	assert.Contains(t, out.String(), "Function dup is ambiguous, skipping.")
}

func TestResolveGatewayFailure(t *testing.T) {
	_, _, err := Resolve(mapResolver{}, []string{"broken"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

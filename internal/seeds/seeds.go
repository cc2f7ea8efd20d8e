// Package seeds reads the list of starting functions and resolves it through
// the gateway.
package seeds

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zheng/rdecomp/internal/log"
	"github.com/zheng/rdecomp/internal/program"
)

// Resolver turns a name or hex address into a function entry
type Resolver interface {
	ResolveFunction(ref string) (program.FunctionID, error)
}

// Read returns one identifier per non-blank line. Lines starting with # are
// comments.
func Read(r io.Reader) ([]string, error) {
	var refs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seeds: %w", err)
	}
	return refs, nil
}

// ReadFile reads the seed file at path
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Resolve looks every reference up. Unknown and ambiguous references are
// logged and returned in unresolved; any other gateway error aborts.
func Resolve(r Resolver, refs []string, logger log.Logger) (ids []program.FunctionID, unresolved []string, err error) {
	if logger == nil {
		logger = log.Discard()
	}
	for _, ref := range refs {
		id, err := r.ResolveFunction(ref)
		switch {
		case err == nil:
			ids = append(ids, id)
		case errors.Is(err, program.ErrNotFound):
			logger.Warn(fmt.Sprintf("Function %s not found, skipping.", ref))
			unresolved = append(unresolved, ref)
		case errors.Is(err, program.ErrAmbiguous):
			logger.Warn(fmt.Sprintf("Function %s is ambiguous, skipping.", ref), "error", err)
			unresolved = append(unresolved, ref)
		default:
			return nil, nil, fmt.Errorf("failed to resolve %q: %w", ref, err)
		}
	}
	return ids, unresolved, nil
}

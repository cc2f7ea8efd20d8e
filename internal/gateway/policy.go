package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zheng/rdecomp/internal/program"
)

// Policy decides what happens when the decompiler fails on a function that
// was discovered during closure expansion.
type Policy string

const (
	// PolicyAbort fails the whole run
	PolicyAbort Policy = "abort"
	// PolicyPlaceholder emits a diagnostic comment and keeps going
	PolicyPlaceholder Policy = "placeholder"
)

// ParsePolicy validates a policy name
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAbort, PolicyPlaceholder:
		return Policy(s), nil
	case "":
		return PolicyAbort, nil
	}
	return "", fmt.Errorf("unknown decompile failure policy %q (use abort or placeholder)", s)
}

// Tolerant substitutes placeholder text for signature and body queries that
// fail with a *program.DecompileError. Any other error still propagates.
type Tolerant struct {
	Gateway
	failed    map[program.FunctionID]struct{}
	onFailure func(error)
}

// NewTolerant wraps gw. onFailure, if set, is called once per failed function.
func NewTolerant(gw Gateway, onFailure func(error)) *Tolerant {
	return &Tolerant{
		Gateway:   gw,
		failed:    make(map[program.FunctionID]struct{}),
		onFailure: onFailure,
	}
}

// WithPolicy returns gw unchanged for PolicyAbort and a Tolerant otherwise
func WithPolicy(gw Gateway, p Policy, onFailure func(error)) Gateway {
	if p == PolicyPlaceholder {
		return NewTolerant(gw, onFailure)
	}
	return gw
}

func (t *Tolerant) SignatureText(id program.FunctionID) (string, error) {
	sig, err := t.Gateway.SignatureText(id)
	if err == nil {
		return sig, nil
	}
	var de *program.DecompileError
	if !errors.As(err, &de) {
		return "", err
	}
	t.record(id, err)
	return fmt.Sprintf("/* %s @ %s: signature unavailable */", commentSafe(de.Name), de.Function), nil
}

func (t *Tolerant) BodyText(id program.FunctionID) (string, error) {
	body, err := t.Gateway.BodyText(id)
	if err == nil {
		return body, nil
	}
	var de *program.DecompileError
	if !errors.As(err, &de) {
		return "", err
	}
	t.record(id, err)
	var b strings.Builder
	fmt.Fprintf(&b, "/*\n * %s @ %s: decompilation failed\n", commentSafe(de.Name), de.Function)
	for _, line := range strings.Split(strings.TrimRight(de.Reason, "\n"), "\n") {
		b.WriteString(strings.TrimRight(" * "+commentSafe(line), " "))
		b.WriteString("\n")
	}
	b.WriteString(" */\n")
	return b.String(), nil
}

// commentSafe keeps s from closing the surrounding block comment
func commentSafe(s string) string {
	return strings.ReplaceAll(s, "*/", "* /")
}

// Failures returns how many distinct functions fell back to placeholders
func (t *Tolerant) Failures() int {
	return len(t.failed)
}

func (t *Tolerant) record(id program.FunctionID, err error) {
	if _, seen := t.failed[id]; seen {
		return
	}
	t.failed[id] = struct{}{}
	if t.onFailure != nil {
		t.onFailure(err)
	}
}

// Package decomp runs one decompilation: resolve the seeds, compute both
// closures and emit the C file.
package decomp

import (
	"errors"
	"fmt"
	"io"

	"github.com/zheng/rdecomp/internal/closure"
	"github.com/zheng/rdecomp/internal/emit"
	"github.com/zheng/rdecomp/internal/gateway"
	"github.com/zheng/rdecomp/internal/log"
	"github.com/zheng/rdecomp/internal/program"
	"github.com/zheng/rdecomp/internal/seeds"
)

// ErrNoStartingFunction is returned when none of the seeds resolved
var ErrNoStartingFunction = errors.New("no starting function found")

// Options configures a run
type Options struct {
	StructOrder emit.StructOrder
	Policy      gateway.Policy
}

// Summary describes what a run produced
type Summary struct {
	Seeds        []program.FunctionID `json:"seeds"`
	Unresolved   []string             `json:"unresolved,omitempty"`
	Functions    int                  `json:"functions"`
	Types        int                  `json:"types"`
	Structs      int                  `json:"structs"`
	Enums        int                  `json:"enums"`
	Placeholders int                  `json:"placeholders,omitempty"`
}

// Closure resolves refs and computes the closure without emitting anything
func Closure(gw gateway.Gateway, refs []string, logger log.Logger) (*closure.Result, *Summary, error) {
	if logger == nil {
		logger = log.Discard()
	}

	ids, unresolved, err := seeds.Resolve(gw, refs, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(fmt.Sprintf("Found %d starting function(s).", len(ids)))
	if len(ids) == 0 {
		return nil, nil, ErrNoStartingFunction
	}

	res, err := closure.Compute(gw, ids)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("closure computed",
		"functions", len(res.Functions), "types", len(res.Types),
		"structs", len(res.Structs), "enums", len(res.Enums))

	return res, &Summary{
		Seeds:      ids,
		Unresolved: unresolved,
		Functions:  len(res.Functions),
		Types:      len(res.Types),
		Structs:    len(res.Structs),
		Enums:      len(res.Enums),
	}, nil
}

// Run decompiles the closure of refs into w. Nothing is written to w unless
// the whole file could be rendered.
func Run(gw gateway.Gateway, refs []string, w io.Writer, opts Options, logger log.Logger) (*Summary, error) {
	if logger == nil {
		logger = log.Discard()
	}

	res, summary, err := Closure(gw, refs, logger)
	if err != nil {
		return nil, err
	}

	src := gateway.WithPolicy(gw, opts.Policy, func(err error) {
		logger.Warn("decompilation failed, emitting placeholder", "error", err)
	})

	emitter := emit.NewEmitter(src, emit.Options{StructOrder: opts.StructOrder, Logger: logger})
	if err := emitter.Emit(w, res); err != nil {
		return nil, err
	}

	if t, ok := src.(*gateway.Tolerant); ok {
		summary.Placeholders = t.Failures()
	}
	return summary, nil
}

// RunFile reads the seed file, runs, and atomically writes outPath
func RunFile(gw gateway.Gateway, seedPath, outPath string, opts Options, logger log.Logger) (*Summary, error) {
	if logger == nil {
		logger = log.Discard()
	}

	logger.Info("Loading file: " + seedPath)
	refs, err := seeds.ReadFile(seedPath)
	if err != nil {
		return nil, err
	}

	sink, err := OpenFileSink(outPath)
	if err != nil {
		return nil, err
	}
	defer sink.Close()

	summary, err := Run(gw, refs, sink, opts, logger)
	if err != nil {
		return nil, err
	}
	if err := sink.Commit(); err != nil {
		return nil, err
	}

	logger.Info(fmt.Sprintf("Wrote %d enum(s), %d struct(s), and %d function(s) to %s.",
		summary.Enums, summary.Structs, summary.Functions, outPath))
	if summary.Placeholders > 0 {
		logger.Warn(fmt.Sprintf("%d function(s) could not be decompiled and were replaced by placeholders.", summary.Placeholders))
	}
	return summary, nil
}

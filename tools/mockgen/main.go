package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/zheng/rdecomp/internal/loader"
)

// Config represents the mock program configuration
type Config struct {
	Output         string
	SeedFile       string
	NumModules     int
	NumFuncsPerMod int
	MaxDepth       int
	CallDensity    float64 // average number of calls per function
	FailRate       float64 // share of functions the decompiler "fails" on
	Seed           int64
}

// FuncInfo represents a function in the mock program
type FuncInfo struct {
	Module string
	Name   string
	Entry  uint64
	Depth  int
	ModIdx int
}

func parseArgs(args []string) (*Config, error) {
	cfg := &Config{}

	fs := pflag.NewFlagSet("mockgen", pflag.ContinueOnError)
	fs.StringVarP(&cfg.Output, "output", "o", "mock-program.yaml", "export file (.yaml, .json or .msgpack)")
	fs.StringVar(&cfg.SeedFile, "seeds", "", "also write a seed file with the top-level functions")
	fs.IntVar(&cfg.NumModules, "modules", 20, "number of modules")
	fs.IntVar(&cfg.NumFuncsPerMod, "funcs", 100, "functions per module")
	fs.IntVar(&cfg.MaxDepth, "depth", 10, "maximum call depth")
	fs.Float64Var(&cfg.CallDensity, "density", 3.0, "average calls per function")
	fs.Float64Var(&cfg.FailRate, "fail-rate", 0, "fraction of functions that fail to decompile")
	fs.Int64Var(&cfg.Seed, "seed", 0, "random seed (0 = time based)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.NumModules <= 0 || cfg.NumFuncsPerMod <= 0 {
		return nil, fmt.Errorf("--modules and --funcs must be positive")
	}
	if cfg.MaxDepth < 0 {
		return nil, fmt.Errorf("--depth must be non-negative")
	}
	if cfg.CallDensity < 1 {
		return nil, fmt.Errorf("--density must be at least 1")
	}
	if cfg.FailRate < 0 || cfg.FailRate > 1 {
		return nil, fmt.Errorf("--fail-rate must be between 0 and 1")
	}
	if _, err := loader.FormatOf(cfg.Output); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	fmt.Printf("Generating mock program...\n")
	fmt.Printf("  modules:        %d\n", cfg.NumModules)
	fmt.Printf("  funcs/module:   %d\n", cfg.NumFuncsPerMod)
	fmt.Printf("  total funcs:    %d\n", cfg.NumModules*cfg.NumFuncsPerMod)
	fmt.Printf("  max depth:      %d\n", cfg.MaxDepth)
	fmt.Printf("  call density:   %.1f\n", cfg.CallDensity)
	fmt.Printf("  random seed:    %d\n", cfg.Seed)

	exp, roots := generateProgram(cfg, rng)

	if err := loader.Save(cfg.Output, exp); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if cfg.SeedFile != "" {
		if err := os.WriteFile(cfg.SeedFile, []byte(strings.Join(roots, "\n")+"\n"), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("\n✓ Export written: %s (%d functions, %d types)\n", cfg.Output, len(exp.Functions), len(exp.Types))
	fmt.Printf("\nNext:\n")
	fmt.Printf("  rdecomp import %s\n", cfg.Output)
	if cfg.SeedFile != "" {
		fmt.Printf("  rdecomp decompile %s\n", cfg.SeedFile)
	}
}

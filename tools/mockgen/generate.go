package main

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/zheng/rdecomp/internal/loader"
)

const (
	baseAddress = 0x400000
	funcStride  = 0x100
	maxRoots    = 10
)

// generateProgram builds a layered program: functions only call deeper
// functions in the same or a higher numbered module, and every module has a
// context struct that embeds the previous module's context by value.
// It returns the export and the names of a few top-level functions.
func generateProgram(cfg *Config, rng *rand.Rand) (*loader.Export, []string) {
	exp := &loader.Export{Program: "mock"}
	exp.Types = generateTypes(cfg)

	allFuncs := generateFuncRegistry(cfg)
	funcsByDepth := organizeFuncsByDepth(allFuncs, cfg.MaxDepth)

	for _, fn := range allFuncs {
		calls := generateCalls(fn, funcsByDepth, cfg, rng)
		exp.Functions = append(exp.Functions, generateFunction(fn, calls, cfg, rng))
	}

	var roots []string
	for _, fn := range funcsByDepth[0] {
		if len(roots) == maxRoots {
			break
		}
		roots = append(roots, fn.Name)
	}
	return exp, roots
}

func modName(idx int) string {
	return fmt.Sprintf("mod%02d", idx)
}

func ctxPath(idx int) string {
	return "/" + modName(idx) + "/ctx"
}

func generateTypes(cfg *Config) []loader.ExportType {
	types := []loader.ExportType{
		{Name: "int", Kind: "primitive"},
		{Name: "char", Kind: "primitive"},
		{Name: "char *", Kind: "pointer", Elem: "char"},
		{Name: "char[16]", Kind: "array", Elem: "char", Length: 16},
	}

	for i := 0; i < cfg.NumModules; i++ {
		mod := modName(i)
		state := loader.ExportType{
			Name: mod + "_state",
			Path: "/" + mod + "/state",
			Kind: "enum",
		}
		for v, s := range []string{"IDLE", "BUSY", "DONE"} {
			state.Values = append(state.Values, loader.ExportValue{
				Name:  fmt.Sprintf("%s_%s", strings.ToUpper(mod), s),
				Value: int64(v),
			})
		}

		ctx := loader.ExportType{
			Name: mod + "_ctx",
			Path: ctxPath(i),
			Kind: "struct",
			Members: []loader.ExportMember{
				{Name: "id", Type: "int", Offset: 0},
				{Name: "state", Type: state.Path, Offset: 4},
				{Name: "name", Type: "char *", Offset: 8},
				{Name: "tag", Type: "char[16]", Offset: 16, Comment: "zero padded"},
			},
		}
		if i > 0 {
			ctx.Members = append(ctx.Members, loader.ExportMember{Name: "parent", Type: ctxPath(i - 1), Offset: 32})
		}

		types = append(types, state, ctx, loader.ExportType{
			Name: mod + "_ctx *",
			Path: ctxPath(i) + " *",
			Kind: "pointer",
			Elem: ctxPath(i),
		})
	}
	return types
}

func generateFuncRegistry(cfg *Config) []*FuncInfo {
	var funcs []*FuncInfo
	for modIdx := 0; modIdx < cfg.NumModules; modIdx++ {
		for funcIdx := 0; funcIdx < cfg.NumFuncsPerMod; funcIdx++ {
			n := len(funcs)
			funcs = append(funcs, &FuncInfo{
				Module: modName(modIdx),
				Name:   fmt.Sprintf("%s_func%04d", modName(modIdx), funcIdx),
				Entry:  uint64(baseAddress + n*funcStride),
				ModIdx: modIdx,
			})
		}
	}
	return funcs
}

func organizeFuncsByDepth(allFuncs []*FuncInfo, maxDepth int) [][]*FuncInfo {
	funcsByDepth := make([][]*FuncInfo, maxDepth+1)

	// spread functions evenly over the depth layers
	for i, fn := range allFuncs {
		depth := i % (maxDepth + 1)
		fn.Depth = depth
		funcsByDepth[depth] = append(funcsByDepth[depth], fn)
	}

	return funcsByDepth
}

func generateCalls(fn *FuncInfo, funcsByDepth [][]*FuncInfo, cfg *Config, rng *rand.Rand) []*FuncInfo {
	// leaves (maximum depth) call nothing
	if fn.Depth >= len(funcsByDepth)-1 {
		return nil
	}

	// rough Poisson-like call count
	numCalls := rng.Intn(int(cfg.CallDensity*2)) + 1
	if numCalls > int(cfg.CallDensity*1.5) {
		numCalls = int(cfg.CallDensity)
	}

	var calls []*FuncInfo
	seen := make(map[string]bool)

	// Only deeper functions are called; 80% of calls go to the next layer.
	nextDepth := fn.Depth + 1
	if len(funcsByDepth[nextDepth]) == 0 {
		return nil
	}
	for i := 0; i < numCalls; i++ {
		var target *FuncInfo
		if rng.Float64() < 0.8 {
			target = funcsByDepth[nextDepth][rng.Intn(len(funcsByDepth[nextDepth]))]
		} else {
			var deeper []*FuncInfo
			for d := nextDepth; d < len(funcsByDepth); d++ {
				deeper = append(deeper, funcsByDepth[d]...)
			}
			target = deeper[rng.Intn(len(deeper))]
		}

		if target.Name != fn.Name && !seen[target.Name] && target.ModIdx >= fn.ModIdx {
			calls = append(calls, target)
			seen[target.Name] = true
		}
	}

	return calls
}

func generateFunction(fn *FuncInfo, calls []*FuncInfo, cfg *Config, rng *rand.Rand) loader.ExportFunction {
	ef := loader.ExportFunction{
		Name:  fn.Name,
		Entry: fmt.Sprintf("0x%x", fn.Entry),
		Variables: []loader.ExportVariable{
			{Name: "ctx", Type: ctxPath(fn.ModIdx) + " *", Param: true},
			{Name: "input", Type: "int", Param: true},
			{Name: "result", Type: "int"},
		},
	}
	for _, c := range calls {
		ef.Calls = append(ef.Calls, c.Name)
	}

	if cfg.FailRate > 0 && rng.Float64() < cfg.FailRate {
		ef.Error = "mock decompiler failure"
		return ef
	}

	ef.Signature = fmt.Sprintf("int %s(%s_ctx *ctx, int input)", fn.Name, fn.Module)

	var sb strings.Builder
	sb.WriteString("\n" + ef.Signature + "\n\n{\n")
	sb.WriteString("  int result;\n\n")
	sb.WriteString("  result = input;\n")
	for i, c := range calls {
		sb.WriteString(fmt.Sprintf("  result = result + %s((%s_ctx *)ctx,result + %d);\n", c.Name, c.Module, i))
	}
	sb.WriteString("  return result;\n}\n")
	ef.Body = sb.String()

	return ef
}

package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zheng/rdecomp/internal/closure"
	"github.com/zheng/rdecomp/internal/program"
	"github.com/zheng/rdecomp/internal/storage"
)

// maxSignatureWidth caps the signature column of function tables
const maxSignatureWidth = 72

// ShortSignature collapses whitespace and truncates long prototypes.
// e.g., "int  main(int argc,\n  char **argv)" -> "int main(int argc, char **argv)"
func ShortSignature(sig string, width int) string {
	sig = strings.Join(strings.Fields(sig), " ")
	if width > 3 && len(sig) > width {
		return sig[:width-3] + "..."
	}
	return sig
}

// addressWidth returns the widest rendered address of fns
func addressWidth(ids []program.FunctionID) int {
	w := 0
	for _, id := range ids {
		if n := len(id.String()); n > w {
			w = n
		}
	}
	return w
}

// FormatFunctionTable renders one aligned line per function: entry address,
// name and signature, or the decompiler error for functions that failed.
func FormatFunctionTable(fns []*storage.FunctionSummary) string {
	ids := make([]program.FunctionID, len(fns))
	nameWidth := 0
	for i, f := range fns {
		ids[i] = f.ID
		if len(f.Name) > nameWidth {
			nameWidth = len(f.Name)
		}
	}
	addrWidth := addressWidth(ids)

	var sb strings.Builder
	for _, f := range fns {
		detail := ShortSignature(f.Signature, maxSignatureWidth)
		if f.Error != "" {
			detail = "!! " + ShortSignature(f.Error, maxSignatureWidth)
		}
		sb.WriteString(strings.TrimRight(fmt.Sprintf("%-*s  %-*s  %s", addrWidth, f.ID, nameWidth, f.Name, detail), " "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatReach renders functions reachable from root grouped by call depth,
// with ASCII art box-drawing characters.
func FormatReach(root string, fns []*storage.FunctionSummary) string {
	byDepth := make(map[int][]*storage.FunctionSummary)
	var depths []int
	for _, f := range fns {
		if _, ok := byDepth[f.Depth]; !ok {
			depths = append(depths, f.Depth)
		}
		byDepth[f.Depth] = append(byDepth[f.Depth], f)
	}
	sort.Ints(depths)

	var sb strings.Builder
	sb.WriteString(root)
	sb.WriteString("\n")
	for i, d := range depths {
		isLast := i == len(depths)-1
		prefix, childIndent := "├──", "│   "
		if isLast {
			prefix, childIndent = "└──", "    "
		}
		sb.WriteString(fmt.Sprintf("%s depth %d (%d)\n", prefix, d, len(byDepth[d])))

		level := byDepth[d]
		for j, f := range level {
			leaf := "├──"
			if j == len(level)-1 {
				leaf = "└──"
			}
			sb.WriteString(fmt.Sprintf("%s%s %s  %s\n", childIndent, leaf, f.ID, f.Name))
		}
	}
	return sb.String()
}

// FormatClosure renders a closure as sections of functions, structs, enums
// and the remaining types. name resolves function display names.
func FormatClosure(res *closure.Result, name func(program.FunctionID) string) string {
	var sb strings.Builder

	ids := res.SortedFunctions()
	addrWidth := addressWidth(ids)
	sb.WriteString(fmt.Sprintf("functions (%d)\n", len(ids)))
	for _, id := range ids {
		sb.WriteString(fmt.Sprintf("  %-*s  %s\n", addrWidth, id, name(id)))
	}

	writeTypes := func(title string, types []*program.DataType) {
		sb.WriteString(fmt.Sprintf("%s (%d)\n", title, len(types)))
		for _, dt := range types {
			if string(dt.ID) != dt.Name {
				sb.WriteString(fmt.Sprintf("  %s  [%s]\n", dt.Name, dt.ID))
				continue
			}
			sb.WriteString(fmt.Sprintf("  %s\n", dt.Name))
		}
	}

	writeTypes("structs", closure.Sorted(res.Structs))
	writeTypes("enums", closure.Sorted(res.Enums))

	var other []*program.DataType
	for _, dt := range closure.Sorted(res.Types) {
		if dt.Kind != program.KindStruct && dt.Kind != program.KindEnum {
			other = append(other, dt)
		}
	}
	writeTypes("other types", other)

	return sb.String()
}

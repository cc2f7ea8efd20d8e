// Package emit renders a closure as a single C source file.
package emit

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/zheng/rdecomp/internal/closure"
	"github.com/zheng/rdecomp/internal/log"
	"github.com/zheng/rdecomp/internal/program"
)

// maxDeclaratorDepth bounds nested array unwrapping
const maxDeclaratorDepth = 32

// Source provides decompiler text for functions
type Source interface {
	SignatureText(id program.FunctionID) (string, error)
	BodyText(id program.FunctionID) (string, error)
}

// Options configures the emitter
type Options struct {
	StructOrder StructOrder
	Logger      log.Logger
}

// DefaultOptions returns the default emitter options
func DefaultOptions() Options {
	return Options{
		StructOrder: OrderTopo,
		Logger:      log.Discard(),
	}
}

// Emitter writes enums, structs, prototypes and bodies, in that order
type Emitter struct {
	src  Source
	opts Options
}

// NewEmitter creates a new emitter
func NewEmitter(src Source, opts Options) *Emitter {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.StructOrder == "" {
		opts.StructOrder = OrderTopo
	}
	return &Emitter{src: src, opts: opts}
}

// Emit renders res and writes it to w in one piece. Nothing is written when
// a gateway query fails.
func (e *Emitter) Emit(w io.Writer, res *closure.Result) error {
	var buf bytes.Buffer

	e.writeEnums(&buf, res)
	e.writeStructs(&buf, res)

	if err := e.writePrototypes(&buf, res); err != nil {
		return err
	}
	if err := e.writeBodies(&buf, res); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func writeBanner(b *bytes.Buffer, title string) {
	fmt.Fprintf(b, "//\n// %s\n//\n\n", title)
}

// writeEnums writes one typedef'd enum block per reached enumeration
func (e *Emitter) writeEnums(b *bytes.Buffer, res *closure.Result) {
	writeBanner(b, "enums")

	for _, dt := range closure.Sorted(res.Enums) {
		b.WriteString("typedef enum\n{\n")
		for _, v := range dt.Values {
			fmt.Fprintf(b, "\t%s = %d,%s\n", v.Name, v.Value, inlineComment(v.Comment))
		}
		fmt.Fprintf(b, "} %s;\n\n", dt.Name)
	}
}

// writeStructs writes each struct body followed by its typedef
func (e *Emitter) writeStructs(b *bytes.Buffer, res *closure.Result) {
	writeBanner(b, "structs")

	structs, cyclic := orderStructs(res, e.opts.StructOrder)
	if len(cyclic) > 0 {
		e.opts.Logger.Warn("structs embed each other by value, emitting them in name order",
			"structs", strings.Join(cyclic, ", "))
	}

	for _, dt := range structs {
		fmt.Fprintf(b, "struct %s\n{\n", dt.Name)
		for _, m := range dt.Members {
			fmt.Fprintf(b, "\t%s;%s\n", declarator(res, m.Type, m.FieldName()), inlineComment(m.Comment))
		}
		b.WriteString("};\n")
		fmt.Fprintf(b, "typedef %s %s;\n\n", dt.Name, dt.Name)
	}
}

// writePrototypes writes one signature line per function, by entry address
func (e *Emitter) writePrototypes(b *bytes.Buffer, res *closure.Result) error {
	writeBanner(b, "function prototypes")

	for _, id := range res.SortedFunctions() {
		sig, err := e.src.SignatureText(id)
		if err != nil {
			return fmt.Errorf("failed to get signature of %s: %w", id, err)
		}
		b.WriteString(prototypeLine(sig))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return nil
}

// writeBodies writes every decompiled body verbatim, by entry address
func (e *Emitter) writeBodies(b *bytes.Buffer, res *closure.Result) error {
	writeBanner(b, "functions")

	for _, id := range res.SortedFunctions() {
		body, err := e.src.BodyText(id)
		if err != nil {
			return fmt.Errorf("failed to decompile %s: %w", id, err)
		}
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return nil
}

// declarator renders "type name", moving array bounds after the name the
// way C spells them: int[2][3] m becomes int m[2][3].
func declarator(res *closure.Result, id program.TypeID, name string) string {
	for depth := 0; depth < maxDeclaratorDepth; depth++ {
		dt, ok := res.Types[id]
		if !ok || dt.Kind != program.KindArray {
			break
		}
		if dt.Length > 0 {
			name = fmt.Sprintf("%s[%d]", name, dt.Length)
		} else {
			name += "[]"
		}
		id = dt.Elem
	}
	return res.TypeName(id) + " " + name
}

// prototypeLine terminates a signature with a semicolon unless it already
// ends a statement or a comment.
func prototypeLine(sig string) string {
	sig = strings.TrimSpace(sig)
	if strings.HasSuffix(sig, ";") || strings.HasSuffix(sig, "*/") {
		return sig
	}
	return sig + ";"
}

// inlineComment renders an end-of-line comment; empty when there is none
func inlineComment(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return ""
	}
	return " // " + strings.Join(strings.Fields(c), " ")
}

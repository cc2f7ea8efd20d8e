// Package cparse extracts prototypes and call targets from decompiled C
// function text using the tree-sitter C grammar.
package cparse

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// parserPool is a pool of reusable tree-sitter parsers for C.
var parserPool = sync.Pool{
	New: func() interface{} {
		parser := sitter.NewParser()
		parser.SetLanguage(c.GetLanguage())
		return parser
	},
}

// Function is what can be recovered from one decompiled function body
type Function struct {
	Name      string
	Signature string
	Callees   []string
}

// ParseFunction parses body and returns the first function definition in it
func ParseFunction(body string) (*Function, error) {
	content := []byte(body)

	parser := parserPool.Get().(*sitter.Parser)
	defer parserPool.Put(parser)

	tree := parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("parsing function body failed")
	}
	defer tree.Close()

	def := findFunctionDefinition(tree.RootNode())
	if def == nil {
		return nil, fmt.Errorf("no function definition found")
	}

	fn := &Function{
		Signature: signatureText(def, content),
		Callees:   callees(def, content),
	}
	if decl := def.ChildByFieldName("declarator"); decl != nil {
		fn.Name = declaratorName(decl, content)
	}
	return fn, nil
}

// Signature returns the prototype text of the function defined in body
func Signature(body string) (string, error) {
	fn, err := ParseFunction(body)
	if err != nil {
		return "", err
	}
	return fn.Signature, nil
}

func findFunctionDefinition(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() == "function_definition" {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if def := findFunctionDefinition(node.Child(i)); def != nil {
			return def
		}
	}
	return nil
}

// signatureText is everything before the body, whitespace collapsed
func signatureText(def *sitter.Node, content []byte) string {
	end := def.EndByte()
	if body := def.ChildByFieldName("body"); body != nil {
		end = body.StartByte()
	}
	text := string(content[def.StartByte():end])
	return strings.Join(strings.Fields(text), " ")
}

// declaratorName digs through pointer and function declarators to the name
func declaratorName(node *sitter.Node, content []byte) string {
	for node != nil {
		switch node.Type() {
		case "identifier", "field_identifier":
			return node.Content(content)
		case "function_declarator", "pointer_declarator", "parenthesized_declarator":
			next := node.ChildByFieldName("declarator")
			// parenthesized_declarator has no field name
			if next == nil && node.NamedChildCount() > 0 {
				next = node.NamedChild(0)
			}
			node = next
		default:
			return ""
		}
	}
	return ""
}

// callees lists the distinct identifiers called directly in def, sorted
func callees(def *sitter.Node, content []byte) []string {
	seen := make(map[string]struct{})
	walkCalls(def, content, seen)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func walkCalls(node *sitter.Node, content []byte, seen map[string]struct{}) {
	if node == nil {
		return
	}
	if node.Type() == "call_expression" {
		if fn := node.ChildByFieldName("function"); fn != nil && fn.Type() == "identifier" {
			seen[fn.Content(content)] = struct{}{}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkCalls(node.Child(i), content, seen)
	}
}

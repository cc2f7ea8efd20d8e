package program

import "fmt"

// TypeID is the stable key of a data type: its category path when known,
// otherwise its display name.
type TypeID string

// Kind is the closed set of data type variants
type Kind string

const (
	KindPrimitive Kind = "primitive"
	KindEnum      Kind = "enum"
	KindPointer   Kind = "pointer"
	KindArray     Kind = "array"
	KindStruct    Kind = "struct"
)

// ParseKind maps an exported kind name onto the closed variant.
// Leaf-like kinds the analysis engine reports (typedefs, unions, function
// definitions) collapse to KindPrimitive.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "primitive", "opaque", "typedef", "union", "function", "":
		return KindPrimitive, nil
	case "enum":
		return KindEnum, nil
	case "pointer":
		return KindPointer, nil
	case "array":
		return KindArray, nil
	case "struct", "structure":
		return KindStruct, nil
	}
	return "", fmt.Errorf("unknown data type kind %q", s)
}

// DataType is one node of the type-reference graph
type DataType struct {
	ID      TypeID      `json:"id"`
	Kind    Kind        `json:"kind"`
	Name    string      `json:"name"`
	Elem    TypeID      `json:"elem,omitempty"`   // pointee or element type
	Length  int         `json:"length,omitempty"` // array element count
	Members []Member    `json:"members,omitempty"`
	Values  []EnumValue `json:"values,omitempty"`
}

// Member is a structure component
type Member struct {
	Name    string `json:"name"`
	Type    TypeID `json:"type"`
	Offset  int64  `json:"offset"`
	Comment string `json:"comment,omitempty"`
}

// FieldName returns the member name, falling back to the analysis engine's
// default offset-based name for unnamed components.
func (m Member) FieldName() string {
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("field_0x%x", m.Offset)
}

// EnumValue is one named constant of an enumeration
type EnumValue struct {
	Name    string `json:"name"`
	Value   int64  `json:"value"`
	Comment string `json:"comment,omitempty"`
}

// Refs returns the types this type directly refers to
func (t *DataType) Refs() []TypeID {
	switch t.Kind {
	case KindPointer, KindArray:
		return []TypeID{t.Elem}
	case KindStruct:
		refs := make([]TypeID, 0, len(t.Members))
		for _, m := range t.Members {
			refs = append(refs, m.Type)
		}
		return refs
	}
	return nil
}

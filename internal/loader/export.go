// Package loader reads program exports written by the analysis engine and
// turns them into a program.Program.
package loader

// Export is the serialized program database. The same tags serve YAML, JSON
// and MessagePack.
type Export struct {
	Program   string           `yaml:"program" json:"program" msgpack:"program"`
	Functions []ExportFunction `yaml:"functions" json:"functions" msgpack:"functions"`
	Types     []ExportType     `yaml:"types" json:"types" msgpack:"types"`
}

// ExportFunction is one decompiled function. Entry is a hex address string.
type ExportFunction struct {
	Name      string           `yaml:"name" json:"name" msgpack:"name"`
	Entry     string           `yaml:"entry" json:"entry" msgpack:"entry"`
	Signature string           `yaml:"signature,omitempty" json:"signature,omitempty" msgpack:"signature,omitempty"`
	Body      string           `yaml:"body,omitempty" json:"body,omitempty" msgpack:"body,omitempty"`
	Error     string           `yaml:"error,omitempty" json:"error,omitempty" msgpack:"error,omitempty"`
	Calls     []string         `yaml:"calls,omitempty" json:"calls,omitempty" msgpack:"calls,omitempty"`
	Variables []ExportVariable `yaml:"variables,omitempty" json:"variables,omitempty" msgpack:"variables,omitempty"`
}

type ExportVariable struct {
	Name  string `yaml:"name" json:"name" msgpack:"name"`
	Type  string `yaml:"type" json:"type" msgpack:"type"`
	Param bool   `yaml:"param,omitempty" json:"param,omitempty" msgpack:"param,omitempty"`
}

// ExportType is one data type. Path is the category path; types are
// referenced by path when they have one, by name otherwise.
type ExportType struct {
	Name    string         `yaml:"name" json:"name" msgpack:"name"`
	Path    string         `yaml:"path,omitempty" json:"path,omitempty" msgpack:"path,omitempty"`
	Kind    string         `yaml:"kind" json:"kind" msgpack:"kind"`
	Elem    string         `yaml:"elem,omitempty" json:"elem,omitempty" msgpack:"elem,omitempty"`
	Length  int            `yaml:"length,omitempty" json:"length,omitempty" msgpack:"length,omitempty"`
	Members []ExportMember `yaml:"members,omitempty" json:"members,omitempty" msgpack:"members,omitempty"`
	Values  []ExportValue  `yaml:"values,omitempty" json:"values,omitempty" msgpack:"values,omitempty"`
}

type ExportMember struct {
	Name    string `yaml:"name,omitempty" json:"name,omitempty" msgpack:"name,omitempty"`
	Type    string `yaml:"type" json:"type" msgpack:"type"`
	Offset  int64  `yaml:"offset" json:"offset" msgpack:"offset"`
	Comment string `yaml:"comment,omitempty" json:"comment,omitempty" msgpack:"comment,omitempty"`
}

type ExportValue struct {
	Name    string `yaml:"name" json:"name" msgpack:"name"`
	Value   int64  `yaml:"value" json:"value" msgpack:"value"`
	Comment string `yaml:"comment,omitempty" json:"comment,omitempty" msgpack:"comment,omitempty"`
}

package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RawObjectSchema is a declarative, possibly shorthand class definition.
type RawObjectSchema struct {
	Name       string        `yaml:"name" json:"name"`
	PrimaryKey string        `yaml:"primaryKey,omitempty" json:"primaryKey,omitempty"`
	Embedded   bool          `yaml:"embedded,omitempty" json:"embedded,omitempty"`
	Asymmetric bool          `yaml:"asymmetric,omitempty" json:"asymmetric,omitempty"`
	Properties RawProperties `yaml:"properties" json:"properties"`
}

// RawProperty is a declarative property. Type may be shorthand
// ("int?", "Task[]", "string<>", "mixed{}"); explicit fields override what
// the shorthand implies.
type RawProperty struct {
	Name       string `yaml:"name,omitempty" json:"name"`
	Type       string `yaml:"type" json:"type"`
	ObjectType string `yaml:"objectType,omitempty" json:"objectType,omitempty"`
	Optional   *bool  `yaml:"optional,omitempty" json:"optional,omitempty"`
	Indexed    bool   `yaml:"indexed,omitempty" json:"indexed,omitempty"`
	PrimaryKey bool   `yaml:"primaryKey,omitempty" json:"primaryKey,omitempty"`
	MappedTo   string `yaml:"mapTo,omitempty" json:"mapTo,omitempty"`
}

// RawProperties keeps declaration order. In YAML it may be written as an
// ordered mapping (name: type or name: {type: ...}) or as a sequence of
// property objects carrying a name.
type RawProperties []RawProperty

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *RawProperties) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []RawProperty
		if err := node.Decode(&list); err != nil {
			return err
		}
		*p = list
		return nil
	case yaml.MappingNode:
		out := make(RawProperties, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			prop := RawProperty{Name: key.Value}
			switch val.Kind {
			case yaml.ScalarNode:
				prop.Type = val.Value
			case yaml.MappingNode:
				if err := val.Decode(&prop); err != nil {
					return fmt.Errorf("property %q: %w", key.Value, err)
				}
				prop.Name = key.Value
			default:
				return fmt.Errorf("property %q: line %d: expected type string or mapping", key.Value, val.Line)
			}
			out = append(out, prop)
		}
		*p = out
		return nil
	default:
		return fmt.Errorf("line %d: properties must be a mapping or a sequence", node.Line)
	}
}

// Bool returns a pointer to b, for RawProperty.Optional.
func Bool(b bool) *bool { return &b }

// shorthand is a parsed shorthand type string.
type shorthand struct {
	typ             PropertyType
	objectType      string
	optional        bool
	elementOptional bool
}

// parseShorthand splits "int?", "Task[]", "string?<>" and "Task{}" into
// their parts. Unknown base names are treated as class references; they are
// resolved later against the declared classes.
func parseShorthand(s string) shorthand {
	var sh shorthand
	collection := PropertyType("")
	switch {
	case strings.HasSuffix(s, "[]"):
		collection, s = TypeList, strings.TrimSuffix(s, "[]")
	case strings.HasSuffix(s, "<>"):
		collection, s = TypeSet, strings.TrimSuffix(s, "<>")
	case strings.HasSuffix(s, "{}"):
		collection, s = TypeDictionary, strings.TrimSuffix(s, "{}")
	}

	optional := false
	if strings.HasSuffix(s, "?") {
		optional, s = true, strings.TrimSuffix(s, "?")
	}

	base := PropertyType(s)
	if collection != "" {
		sh.typ = collection
		sh.objectType = s
		sh.elementOptional = optional
		return sh
	}

	switch {
	case base.IsPrimitive() || base.IsCollection():
		sh.typ = base
	case base == TypeObject:
		sh.typ = TypeObject
	default:
		sh.typ = TypeObject
		sh.objectType = s
	}
	sh.optional = optional
	return sh
}

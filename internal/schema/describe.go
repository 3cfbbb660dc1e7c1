package schema

import (
	"fmt"
	"io"
	"strings"
)

// TypeExpr renders a property's type in shorthand form ("int?", "Task[]").
func TypeExpr(p Property) string {
	switch p.Type {
	case TypeObject:
		return p.ObjectType + "?"
	case TypeList, TypeSet, TypeDictionary:
		elem := p.ObjectType
		if p.Optional && PropertyType(elem).IsPrimitive() && elem != string(TypeMixed) {
			elem += "?"
		}
		switch p.Type {
		case TypeList:
			return elem + "[]"
		case TypeSet:
			return elem + "<>"
		default:
			return elem + "{}"
		}
	default:
		if p.Optional && p.Type != TypeMixed {
			return string(p.Type) + "?"
		}
		return string(p.Type)
	}
}

// Describe writes a stable, line-oriented rendering of s:
//
//	class Task [normal] primaryKey=_id
//	  _id: objectId (primary, indexed)
//	  description: string
func Describe(w io.Writer, s Schema) error {
	for i, os := range s {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		header := fmt.Sprintf("class %s [%s]", os.Name, os.Kind)
		if os.PrimaryKey != "" {
			header += " primaryKey=" + os.PrimaryKey
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		for _, p := range os.Properties {
			line := fmt.Sprintf("  %s: %s", p.Name, TypeExpr(p))
			if p.MappedName != p.Name {
				line += " mapTo=" + p.MappedName
			}
			var flags []string
			if p.IsPrimary {
				flags = append(flags, "primary")
			}
			if p.Indexed {
				flags = append(flags, "indexed")
			}
			if len(flags) > 0 {
				line += " (" + strings.Join(flags, ", ") + ")"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

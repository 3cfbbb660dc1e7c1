package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Document is a schema file: a version and the raw class definitions.
type Document struct {
	Version uint64            `yaml:"version"`
	Classes []RawObjectSchema `yaml:"classes"`
}

// LoadFile reads a schema document, choosing the decoder from the extension
// (.cue, or .yaml/.yml).
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	switch filepath.Ext(path) {
	case ".cue":
		return LoadCUE(data, filepath.Base(path))
	case ".yaml", ".yml":
		return LoadYAML(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported schema file extension %q (want .cue, .yaml or .yml)", filepath.Ext(path))
	}
}

// LoadYAML decodes a YAML schema document:
//
//	version: 1
//	classes:
//	  - name: Task
//	    primaryKey: _id
//	    properties:
//	      _id: objectId
//	      description: string
//	      isComplete: {type: bool, indexed: true}
func LoadYAML(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("decode yaml schema: %w", err)
	}
	return &doc, nil
}

// LoadCUE evaluates a CUE schema document. Classes are a struct keyed by
// class name; property order follows declaration order. Labels starting with
// an underscore are hidden in CUE and must be quoted:
//
//	version: 1
//	classes: Task: {
//		primaryKey: "_id"
//		properties: {
//			"_id":       "objectId"
//			description: "string"
//			isComplete:  {type: "bool", indexed: true}
//		}
//	}
func LoadCUE(src []byte, filename string) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	doc := &Document{}
	if vv := v.LookupPath(cue.ParsePath("version")); vv.Exists() {
		n, err := vv.Uint64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		doc.Version = n
	}

	classesVal := v.LookupPath(cue.ParsePath("classes"))
	if !classesVal.Exists() {
		return doc, nil
	}
	iter, err := classesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		rc, err := cueClass(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		doc.Classes = append(doc.Classes, rc)
	}
	return doc, nil
}

func cueClass(name string, v cue.Value) (RawObjectSchema, error) {
	rc := RawObjectSchema{Name: name}
	var err error
	if rc.PrimaryKey, err = cueString(v, "primaryKey"); err != nil {
		return rc, err
	}
	if rc.Embedded, err = cueBool(v, "embedded"); err != nil {
		return rc, err
	}
	if rc.Asymmetric, err = cueBool(v, "asymmetric"); err != nil {
		return rc, err
	}

	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return rc, nil
	}
	iter, err := propsVal.Fields()
	if err != nil {
		return rc, formatCUEError(err)
	}
	for iter.Next() {
		prop := RawProperty{Name: iter.Label()}
		pv := iter.Value()
		switch pv.IncompleteKind() {
		case cue.StringKind:
			if prop.Type, err = pv.String(); err != nil {
				return rc, formatCUEError(err)
			}
		case cue.StructKind:
			if err := pv.Decode(&prop); err != nil {
				return rc, formatCUEError(err)
			}
			prop.Name = iter.Label()
		default:
			return rc, fmt.Errorf("class %s: property %s: expected string or struct, got %v", name, iter.Label(), pv.IncompleteKind())
		}
		rc.Properties = append(rc.Properties, prop)
	}
	return rc, nil
}

func cueString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func cueBool(v cue.Value, path string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("cue schema: %w", err)
	}
	first := errs[0]
	if pos := cueerrors.Positions(first); len(pos) > 0 && pos[0].IsValid() {
		return fmt.Errorf("cue schema: %s:%d:%d: %s", pos[0].Filename(), pos[0].Line(), pos[0].Column(), first.Error())
	}
	return fmt.Errorf("cue schema: %s", first.Error())
}

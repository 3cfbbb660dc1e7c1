// Package schema normalizes declarative object schemas into the canonical
// form the storage engine understands.
//
// A raw schema may use shorthand ("int?", "Task[]", "string<>") and may
// leave optionality, indexing and mapped names implicit. Normalize resolves
// all of it: every canonical Property carries an explicit type, optional
// flag, index flag, mapped name and primary-key designation, and every class
// reference is checked against the declared classes.
//
// Raw schemas are usually loaded from YAML (LoadYAML) or CUE (LoadCUE).
package schema

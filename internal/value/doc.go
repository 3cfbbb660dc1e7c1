// Package value defines the managed value domain: the dynamic values callers
// read from and write to stored objects.
//
// Value is a sealed interface over a closed set of variants. Code outside
// this package joins the union only by embedding Extension, which is how
// wrapper objects and link descriptors become values without this package
// depending on them.
//
// Undefined and Null are distinct: Undefined means "no value supplied" and is
// skipped by create, while Null is an explicit null.
package value

// Package assist turns recognised idioms inside Rust `unsafe` blocks into
// safe equivalents.
//
// An invocation starts from a cursor offset and runs a fixed pipeline:
//
//	locate   find the enclosing unsafe block and its effective range
//	classify first call in document order that matches a known idiom
//	resolve  companion statements, copy operands, binding shape
//	generate replacement text from captured fragments
//	plan     collapse the whole block or splice text in front of it
//
// Every failure is "no edit". At most one assist is registered per call.
// The package never touches files; the caller applies the edits.
package assist

// Package errors provides the classified error primitives used across pagesmith.
//
// A ClassifiedError carries a category (config, render, plugin, ...), a
// severity, a retry hint and structured context. The CLI adapter maps
// categories to exit codes.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryFileSystem, "passthrough source missing").
//		WithContext("from", rule.From).
//		Build()
package errors

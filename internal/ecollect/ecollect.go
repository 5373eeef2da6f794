// Package ecollect aggregates multiple independent failures into one
// report, used where a single operation (validating several fields of one
// rc config file) can fail in more than one place and all of the failures
// are worth surfacing at once rather than stopping at the first.
package ecollect

import "github.com/cockroachdb/errors"

// Collector wraps []error, letting call sites unconditionally feed it
// possibly-nil errors and only check for failure once at the end.
type Collector struct {
	Errors []error
}

// Add appends err if non-nil. Safe to call with the direct result of a
// fallible operation:
//
//	c.Add(loadOneFragment(path))
func (c *Collector) Add(err error) {
	if err != nil {
		c.Errors = append(c.Errors, err)
	}
}

// Addf appends a formatted error, built with errors.Newf so it participates
// in the same wrap/cause chain as the rest of the codebase.
func (c *Collector) Addf(format string, args ...interface{}) {
	c.Errors = append(c.Errors, errors.Newf(format, args...))
}

// HasErrors reports whether anything has been collected.
func (c *Collector) HasErrors() bool { return len(c.Errors) > 0 }

// Combined returns a single error chaining every collected error, or nil if
// none were collected.
func (c *Collector) Combined() error {
	if len(c.Errors) == 0 {
		return nil
	}
	combined := c.Errors[0]
	for _, err := range c.Errors[1:] {
		combined = errors.CombineErrors(combined, err)
	}
	return combined
}

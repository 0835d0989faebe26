// Package validate asserts that decoded relayer response bodies match one of the
// envelopes the relayer protocol defines. Every assertion is pure and synchronous;
// failures are reported as *PropertyError values naming the offending property.
package validate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrInvalidJSON is returned by Parse when the body is not JSON at all.
var ErrInvalidJSON = errors.New("body is not valid JSON")

// maxActualValueLen bounds how much of an offending value is copied into an error.
const maxActualValueLen = 64

// PropertyError reports a property whose type or value does not match the
// expected envelope.
type PropertyError struct {
	// ObjectName is the diagnostic name of the validated object, e.g. "InputProofResponse".
	ObjectName string
	// Property is the dotted path of the offending property. Empty means the object itself.
	Property string
	// ExpectedType names the expected JSON type ("string", "object", "hex", ...).
	ExpectedType string
	// ExpectedValues is the closed allow-list when the expected value is one of a fixed set.
	ExpectedValues []string
	// ActualType is the JSON type found, "undefined" when the property is missing.
	ActualType string
	// ActualValue is the (truncated) raw value found.
	ActualValue string
	// DocsURL overrides the default documentation link.
	DocsURL string
}

// Error implements error.
func (e *PropertyError) Error() string {
	var b strings.Builder
	b.WriteString("invalid ")
	b.WriteString(e.Path())
	b.WriteString(": expected ")
	if len(e.ExpectedValues) > 0 {
		quoted := make([]string, len(e.ExpectedValues))
		for i, v := range e.ExpectedValues {
			quoted[i] = strconv.Quote(v)
		}
		fmt.Fprintf(&b, "%s one of [%s]", e.ExpectedType, strings.Join(quoted, ", "))
	} else {
		b.WriteString(e.ExpectedType)
	}
	b.WriteString(", got ")
	b.WriteString(e.ActualType)
	if e.ActualValue != "" {
		b.WriteString(" ")
		b.WriteString(e.ActualValue)
	}
	return b.String()
}

// Docs returns the documentation link for the error.
func (e *PropertyError) Docs() string {
	if e.DocsURL != "" {
		return e.DocsURL
	}
	return docsLink(responseShapeAnchor)
}

// Path returns ObjectName joined with Property.
func (e *PropertyError) Path() string {
	if e.Property == "" {
		return e.ObjectName
	}
	return e.ObjectName + "." + e.Property
}

func truncate(s string) string {
	if len(s) <= maxActualValueLen {
		return s
	}
	cut := maxActualValueLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

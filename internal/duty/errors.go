package duty

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a single calculation could not produce a result.
type ErrorKind string

const (
	KindLookupFailure          ErrorKind = "lookup_failure"
	KindParseUnresolved        ErrorKind = "parse_unresolved"
	KindMissingStructuralInput ErrorKind = "missing_structural_input"
	KindInvalidInput           ErrorKind = "invalid_input"
)

// ErrCodeNotFound is returned by a RateSource when the tariff code has no
// entry in the reference data.
var ErrCodeNotFound = errors.New("tariff code not found")

// Error is the failure returned for one line item. It always names the
// specific clause, field or code at fault.
type Error struct {
	Kind     ErrorKind
	Code     string
	Field    string
	RateText string
	Clauses  []string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Code != "" {
		fmt.Fprintf(&b, ": tariff code %q", e.Code)
	}

	switch e.Kind {
	case KindLookupFailure:
		b.WriteString(": not found in reference data")
	case KindParseUnresolved:
		fmt.Fprintf(&b, ": duty rate %q has unrecognized clause(s) ", e.RateText)
		quoted := make([]string, len(e.Clauses))
		for i, c := range e.Clauses {
			quoted[i] = fmt.Sprintf("%q", c)
		}
		b.WriteString(strings.Join(quoted, ", "))
	case KindMissingStructuralInput, KindInvalidInput:
		if e.Field != "" {
			fmt.Fprintf(&b, ": %s", e.Field)
		}
	}

	if e.Reason != "" {
		fmt.Fprintf(&b, " %s", e.Reason)
	}
	if e.Err != nil && !errors.Is(e.Err, ErrCodeNotFound) {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the ErrorKind carried by err, or "" when err is not a
// calculation failure.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func invalidInput(field, reason string) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Reason: reason}
}

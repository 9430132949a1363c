package impute

import (
	"fmt"
	"strings"
)

// InsufficientDataError reports that KNN imputation cannot run because the
// requested neighbor count exceeds what the complete rows can support. It is
// recoverable: reduce K or fall back to a simpler strategy.
type InsufficientDataError struct {
	Operation    string
	Columns      []string
	CompleteRows int
	RequestedK   int
	Fallback     string
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf("%s: KNN unavailable for columns [%s]: %d complete row(s) cannot support k=%d",
		e.Operation, strings.Join(e.Columns, ", "), e.CompleteRows, e.RequestedK)
	if e.Fallback != "" {
		msg += "; " + e.Fallback
	}
	return msg
}

// EncodingError reports that a categorical column has no learnable values.
// The column is skipped, never the whole operation.
type EncodingError struct {
	Column string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("column %q has no non-missing values to learn an encoding from", e.Column)
}

// DecodingError reports a code that could not be mapped back to a category.
// The clamp step makes this unreachable in practice, but it is guarded
// anyway and triggers a per-column fallback to mode.
type DecodingError struct {
	Column string
	Code   float64
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("column %q: code %v has no category mapping", e.Column, e.Code)
}

// ValidationError reports malformed caller-supplied parameters. The
// operation is not applied and the dataset is unchanged.
type ValidationError struct {
	Operation string
	Reason    string
	Columns   []string
}

func (e *ValidationError) Error() string {
	if len(e.Columns) > 0 {
		return fmt.Sprintf("%s: %s: [%s]", e.Operation, e.Reason, strings.Join(e.Columns, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Reason)
}

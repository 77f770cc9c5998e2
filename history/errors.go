package history

import "errors"

// Sentinel errors for span computation and classification.
var (
	// ErrMalformedRevision indicates a revision string is not a well-formed
	// 40 hex digit object id. Classification fails fatally on it.
	ErrMalformedRevision = errors.New("history: malformed revision")

	// ErrObjectNotFound indicates a revision does not resolve to an object
	// in the repository.
	ErrObjectNotFound = errors.New("history: object not found")

	// ErrUnexpectedObject indicates a revision resolved to an object type
	// that can not appear in a commit span.
	ErrUnexpectedObject = errors.New("history: unexpected object type")
)

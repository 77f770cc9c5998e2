package trust

import "errors"

// Sentinel errors for trust table construction.
var (
	// ErrInvalidFingerprint indicates a fingerprint is not 40 hex digits
	// after whitespace normalization.
	ErrInvalidFingerprint = errors.New("trust: invalid fingerprint")

	// ErrDuplicateFingerprint indicates two collaborators were configured
	// with the same fingerprint.
	ErrDuplicateFingerprint = errors.New("trust: duplicate fingerprint")
)

package pushgate

import (
	"errors"

	"github.com/meigma/pushgate/history"
	"github.com/meigma/pushgate/policy"
	"github.com/meigma/pushgate/signature"
	"github.com/meigma/pushgate/trust"
)

// Errors owned by the gate.
var (
	// ErrUnknownRef is returned when a ref name can not be classified into
	// a known namespace.
	ErrUnknownRef = errors.New("pushgate: unknown ref")

	// ErrInvalidTrustedKey is returned when a hooks.trustedkey entry is not
	// of the form "name:fingerprint".
	ErrInvalidTrustedKey = errors.New("pushgate: invalid trustedkey entry")
)

// Errors re-exported from policy.
var (
	// ErrRejected indicates a push was rejected by policy.
	ErrRejected = policy.ErrRejected
)

// Errors re-exported from history.
var (
	// ErrMalformedRevision indicates a revision is not a well-formed 40 hex
	// digit object id.
	ErrMalformedRevision = history.ErrMalformedRevision

	// ErrObjectNotFound indicates a revision does not resolve to an object.
	ErrObjectNotFound = history.ErrObjectNotFound
)

// Errors re-exported from trust.
var (
	// ErrInvalidFingerprint indicates a malformed collaborator fingerprint.
	ErrInvalidFingerprint = trust.ErrInvalidFingerprint

	// ErrDuplicateFingerprint indicates two collaborators share a
	// fingerprint.
	ErrDuplicateFingerprint = trust.ErrDuplicateFingerprint
)

// Errors re-exported from signature.
var (
	// ErrEmptyKeyring indicates an armored keyring contained no keys.
	ErrEmptyKeyring = signature.ErrEmptyKeyring
)

// Package trust holds the static collaborator trust table used to decide
// whether a signing key belongs to a known repository collaborator.
//
// A collaborator is configured with a full key fingerprint only. The long key
// id is always derived from the fingerprint, never configured independently,
// so the two can not drift apart. Lookups require both the presented key id
// and an independently fetched fingerprint to match: a key id on its own is
// forgeable and must never grant trust.
package trust

import (
	"fmt"
	"strings"
)

// FingerprintLength is the length of a full key fingerprint in hex digits.
const FingerprintLength = 40

// KeyIDLength is the length of a long key id in hex digits.
const KeyIDLength = 16

// Collaborator is a named identity bound to a full key fingerprint.
type Collaborator struct {
	Name        string
	Fingerprint string
	KeyID       string
}

// NewCollaborator builds a collaborator from a name and a full fingerprint.
// The fingerprint may be grouped with whitespace (the common display form);
// it is normalized to 40 upper-case hex digits. The long key id is derived
// as the trailing 16 digits of the fingerprint.
func NewCollaborator(name, fingerprint string) (Collaborator, error) {
	fpr, err := NormalizeFingerprint(fingerprint)
	if err != nil {
		return Collaborator{}, fmt.Errorf("collaborator %q: %w", name, err)
	}
	return Collaborator{
		Name:        name,
		Fingerprint: fpr,
		KeyID:       fpr[FingerprintLength-KeyIDLength:],
	}, nil
}

// NormalizeFingerprint strips whitespace and upper-cases a fingerprint,
// returning ErrInvalidFingerprint if the result is not 40 hex digits.
func NormalizeFingerprint(fingerprint string) (string, error) {
	fpr := strings.ToUpper(strings.Join(strings.Fields(fingerprint), ""))
	if len(fpr) != FingerprintLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidFingerprint, fingerprint)
	}
	for _, r := range fpr {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return "", fmt.Errorf("%w: %q", ErrInvalidFingerprint, fingerprint)
		}
	}
	return fpr, nil
}

// Store is an immutable set of collaborators keyed by fingerprint.
//
// Key id collisions across collaborators are structurally permitted; they are
// resolved at lookup time by fingerprint equality.
type Store struct {
	byKeyID map[string][]Collaborator
}

// NewStore builds a store from the given collaborators. Two collaborators
// sharing a fingerprint is a configuration error.
func NewStore(collaborators ...Collaborator) (*Store, error) {
	s := &Store{byKeyID: make(map[string][]Collaborator, len(collaborators))}
	seen := make(map[string]string, len(collaborators))
	for _, c := range collaborators {
		fpr, err := NormalizeFingerprint(c.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("collaborator %q: %w", c.Name, err)
		}
		if prev, ok := seen[fpr]; ok {
			return nil, fmt.Errorf("%w: %q and %q", ErrDuplicateFingerprint, prev, c.Name)
		}
		seen[fpr] = c.Name
		c.Fingerprint = fpr
		c.KeyID = fpr[FingerprintLength-KeyIDLength:]
		s.byKeyID[c.KeyID] = append(s.byKeyID[c.KeyID], c)
	}
	return s, nil
}

// Len returns the number of configured collaborators.
func (s *Store) Len() int {
	n := 0
	for _, cs := range s.byKeyID {
		n += len(cs)
	}
	return n
}

// Lookup reports whether the (key id, fingerprint) pair identifies a trusted
// collaborator. The key id must be a long (16 hex digit) id; short ids are
// rejected outright because they can not be disambiguated. Trust is granted
// only when a collaborator matches on key id and the fingerprint, fetched
// independently of the signature, is byte-for-byte equal to the stored one.
func (s *Store) Lookup(keyID, fingerprint string) (Collaborator, bool) {
	id := strings.ToUpper(strings.Join(strings.Fields(keyID), ""))
	if len(id) != KeyIDLength {
		return Collaborator{}, false
	}
	fpr, err := NormalizeFingerprint(fingerprint)
	if err != nil {
		return Collaborator{}, false
	}
	for _, c := range s.byKeyID[id] {
		if c.Fingerprint == fpr {
			return c, true
		}
	}
	return Collaborator{}, false
}

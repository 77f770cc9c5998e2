// Package signature adapts the OpenPGP verification primitive to a typed
// result contract.
//
// The rest of the engine never inspects free-form verification output: a
// [Verifier] turns a commit or tag into a [Result] carrying a validity
// status, the signer's long key id, and the signer's fingerprint looked up
// from the local keyring, never taken from the signature itself.
package signature

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Status is the validity of a signature.
type Status int

// Signature validity states. Absent and Bad are treated identically wherever
// a signature is required; verification fails closed.
const (
	StatusAbsent Status = iota
	StatusBad
	StatusGood
)

// String returns a short human-readable form of the status.
func (s Status) String() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusBad:
		return "bad"
	default:
		return "absent"
	}
}

// Result is the outcome of verifying one object's signature.
type Result struct {
	// Status is the cryptographic validity of the signature.
	Status Status

	// KeyID is the signer's long (16 hex digit) key id, when it could be
	// determined. For bad signatures this is the issuer id recovered from
	// the signature packet, which identifies the claimed signer but proves
	// nothing.
	KeyID string

	// Fingerprint is the full fingerprint of the key that produced a good
	// signature. It comes from the local keyring entry, independently of
	// anything the signature claims, and is empty unless Status is good.
	Fingerprint string
}

// Verifier checks OpenPGP signatures on commits and tag objects against a
// local keyring.
type Verifier struct {
	keyring openpgp.EntityList
	logger  *slog.Logger
}

// NewVerifier creates a verifier. Without a keyring option the keyring is
// empty, so every signature verifies as bad.
func NewVerifier(opts ...VerifierOption) (*Verifier, error) {
	v := &Verifier{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("signature: %w", err)
		}
	}
	return v, nil
}

// VerifyCommit verifies the embedded PGP signature of a commit.
func (v *Verifier) VerifyCommit(commit *object.Commit) Result {
	if commit == nil || commit.PGPSignature == "" {
		return Result{Status: StatusAbsent}
	}
	return v.verify(commit.PGPSignature, commit.EncodeWithoutSignature, "commit", commit.Hash)
}

// VerifyTag verifies the embedded PGP signature of an annotated tag object.
func (v *Verifier) VerifyTag(tag *object.Tag) Result {
	if tag == nil || tag.PGPSignature == "" {
		return Result{Status: StatusAbsent}
	}
	return v.verify(tag.PGPSignature, tag.EncodeWithoutSignature, "tag", tag.Hash)
}

func (v *Verifier) verify(sig string, encode func(plumbing.EncodedObject) error, kind string, hash plumbing.Hash) Result {
	encoded := &plumbing.MemoryObject{}
	if err := encode(encoded); err != nil {
		v.logger.Warn("failed to encode object for verification",
			slog.String("kind", kind),
			slog.String("hash", hash.String()),
			slog.Any("error", err))
		return Result{Status: StatusBad, KeyID: issuerKeyID(sig)}
	}

	payload, err := encoded.Reader()
	if err != nil {
		return Result{Status: StatusBad, KeyID: issuerKeyID(sig)}
	}
	defer payload.Close()

	entity, err := openpgp.CheckArmoredDetachedSignature(v.keyring, payload, strings.NewReader(sig), nil)
	if err != nil {
		v.logger.Debug("signature did not verify",
			slog.String("kind", kind),
			slog.String("hash", hash.String()),
			slog.Any("error", err))
		return Result{Status: StatusBad, KeyID: issuerKeyID(sig)}
	}

	return Result{
		Status:      StatusGood,
		KeyID:       fmt.Sprintf("%016X", entity.PrimaryKey.KeyId),
		Fingerprint: fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint),
	}
}

// issuerKeyID recovers the claimed issuer key id from an armored signature.
// Best effort only: the id identifies which key to complain about, it is
// never used for a trust decision.
func issuerKeyID(sig string) string {
	block, err := armor.Decode(strings.NewReader(sig))
	if err != nil {
		return ""
	}
	pkt, err := packet.Read(block.Body)
	if err != nil {
		return ""
	}
	s, ok := pkt.(*packet.Signature)
	if !ok || s.IssuerKeyId == nil {
		return ""
	}
	return fmt.Sprintf("%016X", *s.IssuerKeyId)
}

package signature

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier) error

// WithArmoredKeyring loads the verifier's keyring from an armored stream.
func WithArmoredKeyring(r io.Reader) VerifierOption {
	return func(v *Verifier) error {
		keyring, err := openpgp.ReadArmoredKeyRing(r)
		if err != nil {
			return fmt.Errorf("read keyring: %w", err)
		}
		if len(keyring) == 0 {
			return ErrEmptyKeyring
		}
		v.keyring = keyring
		return nil
	}
}

// WithKeyring sets an existing keyring on the verifier.
func WithKeyring(keyring openpgp.EntityList) VerifierOption {
	return func(v *Verifier) error {
		v.keyring = keyring
		return nil
	}
}

// WithLogger sets a custom logger for the verifier.
func WithLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) error {
		v.logger = logger
		return nil
	}
}

package signature

import "errors"

// ErrEmptyKeyring indicates an armored keyring contained no keys.
var ErrEmptyKeyring = errors.New("signature: keyring contains no keys")

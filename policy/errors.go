package policy

import "errors"

// ErrRejected indicates a push was rejected by policy. The wrapped message
// carries the specific reason and offending revision.
var ErrRejected = errors.New("policy: push rejected")

package pushgate

import (
	"github.com/meigma/pushgate/history"
	"github.com/meigma/pushgate/policy"
	"github.com/meigma/pushgate/signature"
	"github.com/meigma/pushgate/trust"
)

// --- Re-exports from policy ---

// Config holds the boolean policy options for one invocation.
type Config = policy.Config

// Verdict is the accept/reject decision for a push.
type Verdict = policy.Verdict

// Namespace classifies the ref being updated.
type Namespace = policy.Namespace

// Ref namespaces.
const (
	NamespaceUnknown  = policy.NamespaceUnknown
	NamespaceBranch   = policy.NamespaceBranch
	NamespaceTag      = policy.NamespaceTag
	NamespaceTracking = policy.NamespaceTracking
)

// --- Re-exports from history ---

// Class identifies what kind of history object a span member is.
type Class = history.Class

// Object classifications.
const (
	ClassCommit         = history.ClassCommit
	ClassMerge          = history.ClassMerge
	ClassTag            = history.ClassTag
	ClassLightweightTag = history.ClassLightweightTag
	ClassDeletion       = history.ClassDeletion
)

// --- Re-exports from trust ---

// Collaborator is a named identity bound to a full key fingerprint.
type Collaborator = trust.Collaborator

// --- Re-exports from signature ---

// SignatureResult is the outcome of verifying one object's signature.
type SignatureResult = signature.Result

// SignatureStatus is the validity of a signature.
type SignatureStatus = signature.Status

// Signature validity states.
const (
	SignatureAbsent = signature.StatusAbsent
	SignatureBad    = signature.StatusBad
	SignatureGood   = signature.StatusGood
)

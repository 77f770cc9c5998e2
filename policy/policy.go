// Package policy implements the per-object acceptance state machine.
//
// The machine's states are (ref namespace, object classification) pairs; its
// transitions are accept/reject verdicts. The mapping is a first-class rule
// table so every case is enumerable and testable in isolation. Anything the
// table does not cover is rejected, never silently accepted.
package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/meigma/pushgate/history"
	"github.com/meigma/pushgate/signature"
	"github.com/meigma/pushgate/trust"
)

// Namespace classifies the ref being updated.
type Namespace int

// Ref namespaces.
const (
	NamespaceUnknown Namespace = iota
	NamespaceBranch
	NamespaceTag
	NamespaceTracking
)

// String returns a short human-readable form of the namespace.
func (n Namespace) String() string {
	switch n {
	case NamespaceBranch:
		return "branch"
	case NamespaceTag:
		return "tag"
	case NamespaceTracking:
		return "tracking ref"
	default:
		return "unknown ref"
	}
}

// NamespaceOf classifies a full ref name.
func NamespaceOf(ref plumbing.ReferenceName) Namespace {
	switch {
	case ref.IsBranch():
		return NamespaceBranch
	case ref.IsTag():
		return NamespaceTag
	case ref.IsRemote():
		return NamespaceTracking
	default:
		return NamespaceUnknown
	}
}

// Config holds the site's boolean policy options, loaded once per invocation
// and immutable for the duration of the decision.
type Config struct {
	// AllowUnsignedCommits skips signature and trust checks on commits and
	// merges.
	AllowUnsignedCommits bool

	// AllowUnsignedTags skips signature and trust checks on annotated tags.
	// Combined with AllowUnannotated it permits lightweight tags.
	AllowUnsignedTags bool

	// AllowCommitsOnMaster permits non-merge updates to the protected
	// branch.
	AllowCommitsOnMaster bool

	// AllowHotfixOnMaster is reserved and not enforced.
	AllowHotfixOnMaster bool

	// AllowUnannotated permits lightweight tags, jointly with
	// AllowUnsignedTags.
	AllowUnannotated bool

	// AllowDeleteTag permits tag deletion.
	AllowDeleteTag bool

	// AllowModifyTag permits re-pointing an existing tag.
	AllowModifyTag bool

	// AllowDeleteBranch permits branch and tracking-ref deletion.
	AllowDeleteBranch bool

	// DenyCreateBranch forbids creating new branches.
	DenyCreateBranch bool
}

// CommitVerifier verifies the signature embedded in a commit object.
type CommitVerifier interface {
	VerifyCommit(commit *object.Commit) signature.Result
}

// Request carries one classified object plus its ref-level metadata through
// the rule table.
type Request struct {
	// Ref is the full name of the ref being updated.
	Ref plumbing.ReferenceName

	// Namespace is the ref's namespace classification.
	Namespace Namespace

	// Protected marks an update to the protected branch.
	Protected bool

	// Created marks an update whose old revision was the zero sentinel.
	Created bool

	// Record is the classified history object under decision.
	Record history.Record

	// Commit is the underlying commit object, nil for deletions.
	Commit *object.Commit
}

// Verdict is the decision for one object, and by aggregation for the whole
// push: the first rejection fails the entire update.
type Verdict struct {
	Accepted bool
	Reason   string
	Revision plumbing.Hash
}

// Accept returns an accepting verdict.
func Accept() Verdict {
	return Verdict{Accepted: true}
}

// Reject returns a rejecting verdict for the given revision.
func Reject(revision plumbing.Hash, format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...), Revision: revision}
}

// Err returns nil for an accepting verdict, or an error wrapping ErrRejected
// with the reason for a rejecting one.
func (v Verdict) Err() error {
	if v.Accepted {
		return nil
	}
	if v.Revision.IsZero() {
		return fmt.Errorf("%w: %s", ErrRejected, v.Reason)
	}
	return fmt.Errorf("%w: %s (%s)", ErrRejected, v.Reason, v.Revision)
}

// Engine evaluates classified objects against the rule table.
type Engine struct {
	config   Config
	trust    *trust.Store
	verifier CommitVerifier
	logger   *slog.Logger
}

// NewEngine creates an engine over the given configuration, trust table and
// commit verifier.
func NewEngine(config Config, store *trust.Store, verifier CommitVerifier, opts ...EngineOption) *Engine {
	e := &Engine{
		config:   config,
		trust:    store,
		verifier: verifier,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's policy configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Evaluate runs one classified object through the rule table.
func (e *Engine) Evaluate(ctx context.Context, req Request) Verdict {
	if err := ctx.Err(); err != nil {
		return Reject(req.Record.Hash, "evaluation canceled: %v", err)
	}

	key := ruleKey{namespace: req.Namespace, class: req.Record.Class, protected: req.Protected}
	rule, ok := ruleTable[key]
	if !ok {
		if req.Protected {
			// The protected branch accepts only merges or its own deletion.
			return Reject(req.Record.Hash, "%s not allowed on %s, it only accepts merges", req.Record.Class, req.Ref.Short())
		}
		return Reject(req.Record.Hash, "unknown update type %s on %s", req.Record.Class, req.Ref)
	}

	verdict := rule(e, req)
	e.logger.Debug("rule evaluated",
		slog.String("ref", req.Ref.String()),
		slog.String("class", req.Record.Class.String()),
		slog.Bool("protected", req.Protected),
		slog.Bool("accepted", verdict.Accepted))
	return verdict
}

// checkCommitSignature enforces the signature and trust requirement on a
// commit. requireKeyID additionally demands a non-empty signer key id, the
// stricter form used on protected-branch merges.
func (e *Engine) checkCommitSignature(req Request, requireKeyID bool) Verdict {
	if e.config.AllowUnsignedCommits {
		return Accept()
	}
	if req.Commit == nil {
		return Reject(req.Record.Hash, "no commit object to verify for %s", req.Record.Hash)
	}

	result := e.verifier.VerifyCommit(req.Commit)
	if result.Status != signature.StatusGood {
		return Reject(req.Record.Hash, "bad signature on commit %s", req.Record.Hash)
	}
	if requireKeyID && result.KeyID == "" {
		return Reject(req.Record.Hash, "signature on commit %s has no signer key id", req.Record.Hash)
	}

	collaborator, ok := e.trust.Lookup(result.KeyID, result.Fingerprint)
	if !ok {
		return Reject(req.Record.Hash, "commit %s signed by untrusted key %s", req.Record.Hash, result.KeyID)
	}

	e.logger.Info("commit signature trusted",
		slog.String("commit", req.Record.Hash.String()),
		slog.String("signer", collaborator.Name),
		slog.String("key_id", collaborator.KeyID))
	return Accept()
}

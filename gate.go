package pushgate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/meigma/pushgate/history"
	"github.com/meigma/pushgate/policy"
	"github.com/meigma/pushgate/signature"
	"github.com/meigma/pushgate/trust"
)

// DefaultProtectedBranch is the branch subject to the stricter update rules
// unless overridden with WithProtectedBranch.
const DefaultProtectedBranch = "master"

// RefUpdate is one proposed ref update: the full ref name and the two
// boundary revisions. The all-zero revision is a sentinel meaning the ref
// did not exist (old side) or is being deleted (new side).
type RefUpdate struct {
	RefName plumbing.ReferenceName
	Old     plumbing.Hash
	New     plumbing.Hash
}

// ParseRefUpdate validates the three positional values of an invocation.
// Malformed revisions fail fatally before any repository access.
func ParseRefUpdate(refName, oldRev, newRev string) (RefUpdate, error) {
	if refName == "" {
		return RefUpdate{}, fmt.Errorf("%w: empty ref name", ErrUnknownRef)
	}
	old, err := history.ParseRevision(oldRev)
	if err != nil {
		return RefUpdate{}, err
	}
	updated, err := history.ParseRevision(newRev)
	if err != nil {
		return RefUpdate{}, err
	}
	return RefUpdate{
		RefName: plumbing.ReferenceName(refName),
		Old:     old,
		New:     updated,
	}, nil
}

// Gate orchestrates classification, signature verification and policy
// evaluation for ref updates against one repository.
type Gate struct {
	repo       *git.Repository
	trust      *trust.Store
	verifier   *signature.Verifier
	classifier *history.Classifier
	engine     *policy.Engine
	config     policy.Config
	configSet  bool
	protected  string
	logger     *slog.Logger
}

// NewGate creates a gate over the given repository. Unless overridden by
// options, the policy configuration is loaded from the repository's hooks
// section, the trust table is empty, and the keyring is empty, so signature
// requirements reject everything until a verifier and trust store are
// supplied.
func NewGate(repo *git.Repository, opts ...GateOption) (*Gate, error) {
	g := &Gate{
		repo:      repo,
		protected: DefaultProtectedBranch,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, fmt.Errorf("pushgate: %w", err)
		}
	}

	if !g.configSet {
		config, err := LoadConfig(repo)
		if err != nil {
			return nil, fmt.Errorf("pushgate: %w", err)
		}
		g.config = config
	}
	if g.trust == nil {
		store, err := trust.NewStore()
		if err != nil {
			return nil, fmt.Errorf("pushgate: %w", err)
		}
		g.trust = store
	}
	if g.verifier == nil {
		verifier, err := signature.NewVerifier(signature.WithLogger(g.logger))
		if err != nil {
			return nil, fmt.Errorf("pushgate: %w", err)
		}
		g.verifier = verifier
	}
	if g.classifier == nil {
		g.classifier = history.NewClassifier(repo, history.WithLogger(g.logger))
	}
	g.engine = policy.NewEngine(g.config, g.trust, g.verifier, policy.WithLogger(g.logger))
	return g, nil
}

// Config returns the gate's policy configuration.
func (g *Gate) Config() policy.Config {
	return g.config
}

// Check evaluates one ref update to a single verdict. The first rejected
// object halts processing of the remaining span.
func (g *Gate) Check(ctx context.Context, update RefUpdate) policy.Verdict {
	verdict := g.check(ctx, update)
	if verdict.Accepted {
		g.logger.Info("ref update accepted",
			slog.String("ref", update.RefName.String()),
			slog.String("old", update.Old.String()),
			slog.String("new", update.New.String()))
	} else {
		g.logger.Warn("ref update rejected",
			slog.String("ref", update.RefName.String()),
			slog.String("revision", verdict.Revision.String()),
			slog.String("reason", verdict.Reason))
	}
	return verdict
}

func (g *Gate) check(ctx context.Context, update RefUpdate) policy.Verdict {
	ns := policy.NamespaceOf(update.RefName)
	if ns == policy.NamespaceUnknown {
		return policy.Reject(update.New, "unknown ref namespace for %s", update.RefName)
	}
	protected := ns == policy.NamespaceBranch && update.RefName.Short() == g.protected

	if update.Old.IsZero() && update.New.IsZero() {
		return policy.Reject(update.New, "both revisions of %s are the zero sentinel", update.RefName)
	}

	// Deletion is a single synthetic record; no span exists.
	if update.New.IsZero() {
		req := g.request(update, ns, protected, history.Record{
			Hash:  update.Old,
			Class: history.ClassDeletion,
		}, nil)
		return g.engine.Evaluate(ctx, req)
	}

	// Creating a branch is refused at ref level so that creations whose
	// span is empty (a new name for existing history) are still caught.
	if ns == policy.NamespaceBranch && update.Old.IsZero() && g.config.DenyCreateBranch {
		return policy.Reject(update.New, "creating branch %s is not allowed", update.RefName.Short())
	}

	if protected && !g.config.AllowCommitsOnMaster && !update.Old.IsZero() {
		if verdict := g.checkProtectedTip(update); !verdict.Accepted {
			return verdict
		}
	}

	span, err := g.classifier.Span(update.Old, update.New)
	if err != nil {
		// Fail closed: a graph query failure is a rejection.
		return policy.Reject(update.New, "cannot compute span for %s: %v", update.RefName, err)
	}

	if ns == policy.NamespaceTag {
		if len(span) > 0 {
			// A tag must not smuggle unreviewed history into the
			// repository; its commits belong on a branch first.
			return policy.Reject(update.New, "tag %s introduces %d commits not reachable from any branch", update.RefName.Short(), len(span))
		}
		return g.checkTagTarget(update)
	}

	if len(span) == 0 {
		// Nothing newly reachable: the new revision is already part of
		// the graph and no per-object rule applies.
		return policy.Accept()
	}

	cursor := update.Old
	for _, member := range span {
		if err := ctx.Err(); err != nil {
			return policy.Reject(member.Hash, "evaluation canceled: %v", err)
		}

		record, err := g.classify(cursor, member, protected)
		if err != nil {
			return policy.Reject(member.Hash, "cannot classify %s: %v", member.Hash, err)
		}

		req := g.request(update, ns, protected, record, member)
		if verdict := g.engine.Evaluate(ctx, req); !verdict.Accepted {
			return verdict
		}
		cursor = member.Hash
	}
	return policy.Accept()
}

// checkProtectedTip enforces that an update to the protected branch is
// itself a merge carrying the old tip as a direct parent.
func (g *Gate) checkProtectedTip(update RefUpdate) policy.Verdict {
	tip, err := g.repo.CommitObject(update.New)
	if err != nil {
		return policy.Reject(update.New, "new revision of %s is not a commit: %v", update.RefName.Short(), err)
	}
	if tip.NumParents() < 2 || !slices.Contains(tip.ParentHashes, update.Old) {
		return policy.Reject(update.New, "%s only accepts merges", update.RefName.Short())
	}
	return policy.Accept()
}

// checkTagTarget applies tag legality: lightweight tags are gated by the
// unannotated and unsigned options, annotated tags by the modify gate and
// the signature and trust requirement.
func (g *Gate) checkTagTarget(update RefUpdate) policy.Verdict {
	short := update.RefName.Short()
	obj, err := g.repo.Object(plumbing.AnyObject, update.New)
	if err != nil {
		return policy.Reject(update.New, "new revision of tag %s not found: %v", short, err)
	}

	switch o := obj.(type) {
	case *object.Commit:
		// Lightweight tag: a bare pointer with no signature object.
		if g.config.AllowUnsignedTags && g.config.AllowUnannotated {
			return policy.Accept()
		}
		return policy.Reject(update.New, "unannotated tag %s is not allowed", short)

	case *object.Tag:
		if !update.Old.IsZero() && !g.config.AllowModifyTag {
			return policy.Reject(update.New, "tag %s already exists and may not be modified", short)
		}
		if g.config.AllowUnsignedTags {
			return policy.Accept()
		}
		result := g.verifier.VerifyTag(o)
		if result.Status != signature.StatusGood {
			return policy.Reject(update.New, "bad signature on tag %s", short)
		}
		if result.KeyID == "" {
			return policy.Reject(update.New, "signature on tag %s has no signer key id", short)
		}
		collaborator, ok := g.trust.Lookup(result.KeyID, result.Fingerprint)
		if !ok {
			return policy.Reject(update.New, "tag %s signed by untrusted key %s", short, result.KeyID)
		}
		g.logger.Info("tag signature trusted",
			slog.String("tag", short),
			slog.String("signer", collaborator.Name))
		return policy.Accept()

	default:
		return policy.Reject(update.New, "unrecognized update: tag %s points at a %s object", short, obj.Type())
	}
}

// classify builds the record for one span member against the running cursor.
func (g *Gate) classify(cursor plumbing.Hash, member *object.Commit, protected bool) (history.Record, error) {
	record := history.Record{Hash: member.Hash, Class: history.ClassCommit}

	merge, err := g.classifier.MergeSince(cursor, member.Hash)
	if err != nil {
		return history.Record{}, err
	}
	if merge {
		record.Class = history.ClassMerge
	}

	// Origin flags only matter for merges landing on the protected branch.
	// The merged-in side of the commit, not the protected branch's own
	// history, is what must come from a devel or release branch, so the
	// flags are taken over the commit and its parents other than the
	// cursor.
	if protected && record.Class == history.ClassMerge {
		candidates := []plumbing.Hash{member.Hash}
		for _, parent := range member.ParentHashes {
			if parent != cursor {
				candidates = append(candidates, parent)
			}
		}
		for _, candidate := range candidates {
			fromDevelop, fromRelease, err := g.classifier.OriginFlags(candidate)
			if err != nil {
				return history.Record{}, err
			}
			record.FromDevelop = record.FromDevelop || fromDevelop
			record.FromRelease = record.FromRelease || fromRelease
			if record.FromDevelop && record.FromRelease {
				break
			}
		}
	}
	return record, nil
}

func (g *Gate) request(update RefUpdate, ns policy.Namespace, protected bool, record history.Record, commit *object.Commit) policy.Request {
	return policy.Request{
		Ref:       update.RefName,
		Namespace: ns,
		Protected: protected,
		Created:   update.Old.IsZero(),
		Record:    record,
		Commit:    commit,
	}
}

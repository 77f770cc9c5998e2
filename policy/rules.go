package policy

import "github.com/meigma/pushgate/history"

// ruleKey addresses one cell of the rule table.
type ruleKey struct {
	namespace Namespace
	class     history.Class
	protected bool
}

// ruleFunc decides one (namespace, classification) case.
type ruleFunc func(e *Engine, req Request) Verdict

// ruleTable maps every recognized (namespace, classification, protected)
// combination to its rule. Lookups that miss the table are rejected by
// Evaluate, so an unhandled case can never slip through as an accept.
var ruleTable = map[ruleKey]ruleFunc{
	{NamespaceBranch, history.ClassCommit, false}:   branchCommit,
	{NamespaceBranch, history.ClassMerge, false}:    branchMerge,
	{NamespaceBranch, history.ClassDeletion, false}: branchDeletion,
	{NamespaceBranch, history.ClassCommit, true}:    protectedCommit,
	{NamespaceBranch, history.ClassMerge, true}:     protectedMerge,
	{NamespaceBranch, history.ClassDeletion, true}:  branchDeletion,

	{NamespaceTag, history.ClassDeletion, false}: tagDeletion,

	{NamespaceTracking, history.ClassCommit, false}:   trackingCommit,
	{NamespaceTracking, history.ClassMerge, false}:    trackingCommit,
	{NamespaceTracking, history.ClassDeletion, false}: trackingDeletion,
}

// branchCommit gates a plain commit on an ordinary branch.
func branchCommit(e *Engine, req Request) Verdict {
	if req.Created && e.config.DenyCreateBranch {
		return Reject(req.Record.Hash, "creating branch %s is not allowed", req.Ref.Short())
	}
	return e.checkCommitSignature(req, false)
}

// branchMerge gates a merge landing on an ordinary branch.
func branchMerge(e *Engine, req Request) Verdict {
	if req.Created && e.config.DenyCreateBranch {
		return Reject(req.Record.Hash, "creating branch %s is not allowed", req.Ref.Short())
	}
	return e.checkCommitSignature(req, false)
}

// protectedCommit gates a plain commit on the protected branch. It is only
// reachable when commits on the protected branch are permitted; the ref-level
// merge requirement rejects the update before the per-object loop otherwise.
func protectedCommit(e *Engine, req Request) Verdict {
	if !e.config.AllowCommitsOnMaster {
		return Reject(req.Record.Hash, "%s only accepts merges", req.Ref.Short())
	}
	return e.checkCommitSignature(req, false)
}

// protectedMerge gates a merge landing on the protected branch: its ancestry
// must pass through a devel* or release* branch, and the signature check is
// the strict form requiring a signer key id.
func protectedMerge(e *Engine, req Request) Verdict {
	if !req.Record.FromDevelop && !req.Record.FromRelease {
		return Reject(req.Record.Hash, "merge %s into %s does not come from a devel or release branch", req.Record.Hash, req.Ref.Short())
	}
	return e.checkCommitSignature(req, true)
}

// branchDeletion gates deleting a branch, protected or not.
func branchDeletion(e *Engine, req Request) Verdict {
	if !e.config.AllowDeleteBranch {
		return Reject(req.Record.Hash, "deleting branch %s is not allowed", req.Ref.Short())
	}
	return Accept()
}

// tagDeletion gates deleting a tag.
func tagDeletion(e *Engine, req Request) Verdict {
	if !e.config.AllowDeleteTag {
		return Reject(req.Record.Hash, "deleting tag %s is not allowed", req.Ref.Short())
	}
	return Accept()
}

// trackingCommit accepts any commit on a tracking ref; tracking refs carry
// no restriction beyond deletion.
func trackingCommit(_ *Engine, _ Request) Verdict {
	return Accept()
}

// trackingDeletion gates deleting a tracking ref.
func trackingDeletion(e *Engine, req Request) Verdict {
	if !e.config.AllowDeleteBranch {
		return Reject(req.Record.Hash, "deleting tracking ref %s is not allowed", req.Ref.Short())
	}
	return Accept()
}

// Package pushgate decides whether a proposed ref update is accepted or
// rejected, based on cryptographic signature verification and structural
// rules about how branches and tags may evolve.
//
// The engine is invoked synchronously by a version-control server for each
// ref a client attempts to update, with the ref name and the old and new
// revisions. It is stateless: every invocation evaluates the update from
// scratch against the live commit graph, an immutable policy configuration,
// and an immutable collaborator trust table.
//
// # Quick Start
//
// Build a gate over an open repository and check an update:
//
//	store, err := trust.NewStore(admins...)
//	if err != nil {
//	    return err
//	}
//	verifier, err := signature.NewVerifier(signature.WithArmoredKeyring(keys))
//	if err != nil {
//	    return err
//	}
//	gate, err := pushgate.NewGate(repo,
//	    pushgate.WithTrustStore(store),
//	    pushgate.WithVerifier(verifier),
//	)
//	if err != nil {
//	    return err
//	}
//	update, err := pushgate.ParseRefUpdate(refName, oldRev, newRev)
//	if err != nil {
//	    return err
//	}
//	verdict := gate.Check(ctx, update)
//	if !verdict.Accepted {
//	    return verdict.Err()
//	}
//
// # Decision Model
//
// Each update is classified by ref namespace (branch, tag, tracking ref) and
// by the objects it introduces (plain commit, merge, tag object, lightweight
// tag, deletion). Ref-level checks run first: the protected branch only
// accepts merge updates, and tag creation, modification and deletion are
// gated by configuration. The span of newly introduced commits is then
// walked oldest first, each object evaluated against the policy rule table,
// consulting the signature verifier and trust table as needed. The first
// rejection fails the whole push; there is no partial acceptance.
//
// # Trust
//
// Collaborators are configured by full key fingerprint only. The long key id
// is derived from the fingerprint; a signature is trusted only when both the
// signer's key id and the independently fetched fingerprint match a stored
// collaborator. A key id on its own, however well it matches, never grants
// trust.
//
// # Configuration
//
// The nine boolean policy options are read from the repository's "hooks"
// configuration section (hooks.allowunsignedcommits and friends) via
// [LoadConfig], and the trust table from hooks.trustedkey entries via
// [LoadTrustStore]. Both are loaded once per invocation and immutable
// afterward.
package pushgate

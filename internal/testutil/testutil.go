// Package testutil builds in-memory git repositories and OpenPGP signing
// identities for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/require"
)

// Repo wraps an in-memory repository with helpers to grow its history.
type Repo struct {
	*git.Repository
	FS billy.Filesystem

	clock time.Time
	seq   int
}

// InitRepo creates an empty in-memory repository. The initial branch is
// master.
func InitRepo(t testing.TB) *Repo {
	t.Helper()

	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)

	return &Repo{
		Repository: repo,
		FS:         fs,
		clock:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Commit writes a unique file and commits it on the current branch. A nil
// signer produces an unsigned commit.
func (r *Repo) Commit(t testing.TB, message string, signer *openpgp.Entity) plumbing.Hash {
	t.Helper()
	return r.commit(t, message, signer, nil)
}

// Merge commits a merge of the current branch tip with the given other
// parents. A nil signer produces an unsigned merge.
func (r *Repo) Merge(t testing.TB, message string, signer *openpgp.Entity, otherParents ...plumbing.Hash) plumbing.Hash {
	t.Helper()

	head, err := r.Head()
	require.NoError(t, err)
	parents := append([]plumbing.Hash{head.Hash()}, otherParents...)
	return r.commit(t, message, signer, parents)
}

func (r *Repo) commit(t testing.TB, message string, signer *openpgp.Entity, parents []plumbing.Hash) plumbing.Hash {
	t.Helper()

	wt, err := r.Worktree()
	require.NoError(t, err)

	r.seq++
	name := fmt.Sprintf("file-%d.txt", r.seq)
	require.NoError(t, util.WriteFile(r.FS, name, []byte(message+"\n"), 0o644))
	_, err = wt.Add(name)
	require.NoError(t, err)

	r.clock = r.clock.Add(time.Minute)
	sig := &object.Signature{Name: "Test Author", Email: "author@example.com", When: r.clock}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:            sig,
		Committer:         sig,
		SignKey:           signer,
		Parents:           parents,
		AllowEmptyCommits: true,
	})
	require.NoError(t, err)
	return hash
}

// Branch creates a branch pointing at the given revision.
func (r *Repo) Branch(t testing.TB, name string, hash plumbing.Hash) {
	t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
	require.NoError(t, r.Storer.SetReference(ref))
}

// Checkout switches the worktree to the given branch, creating it at the
// current HEAD when it does not exist yet.
func (r *Repo) Checkout(t testing.TB, name string) {
	t.Helper()

	wt, err := r.Worktree()
	require.NoError(t, err)

	branch := plumbing.NewBranchReferenceName(name)
	if _, err := r.Reference(branch, false); err != nil {
		head, herr := r.Head()
		require.NoError(t, herr)
		r.Branch(t, name, head.Hash())
	}
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: branch}))
}

// HeadHash returns the current HEAD commit hash.
func (r *Repo) HeadHash(t testing.TB) plumbing.Hash {
	t.Helper()

	head, err := r.Head()
	require.NoError(t, err)
	return head.Hash()
}

// AnnotatedTag creates an annotated tag object pointing at the given
// revision and returns the tag object hash. A nil signer produces an
// unsigned tag.
func (r *Repo) AnnotatedTag(t testing.TB, name string, target plumbing.Hash, signer *openpgp.Entity) plumbing.Hash {
	t.Helper()

	r.clock = r.clock.Add(time.Minute)
	ref, err := r.CreateTag(name, target, &git.CreateTagOptions{
		Tagger:  &object.Signature{Name: "Test Tagger", Email: "tagger@example.com", When: r.clock},
		Message: "tag " + name,
		SignKey: signer,
	})
	require.NoError(t, err)
	return ref.Hash()
}

// LightweightTag creates a bare tag ref pointing directly at a commit.
func (r *Repo) LightweightTag(t testing.TB, name string, target plumbing.Hash) {
	t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewTagReferenceName(name), target)
	require.NoError(t, r.Storer.SetReference(ref))
}

// DeleteBranchRef removes a branch ref without touching the object store.
// Useful to simulate a push creating a ref that does not exist server-side
// yet.
func (r *Repo) DeleteBranchRef(t testing.TB, name string) {
	t.Helper()
	require.NoError(t, r.Storer.RemoveReference(plumbing.NewBranchReferenceName(name)))
}

// DeleteTagRef removes a tag ref without touching the object store.
func (r *Repo) DeleteTagRef(t testing.TB, name string) {
	t.Helper()
	require.NoError(t, r.Storer.RemoveReference(plumbing.NewTagReferenceName(name)))
}

// NewSigner generates a fresh OpenPGP identity for signing test objects.
// EdDSA keeps generation fast.
func NewSigner(t testing.TB, name, email string) *openpgp.Entity {
	t.Helper()

	entity, err := openpgp.NewEntity(name, "", email, &packet.Config{
		Algorithm: packet.PubKeyAlgoEdDSA,
		Time:      func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return entity
}

// Fingerprint returns the entity's primary key fingerprint in upper-case
// hex, the form the trust table stores.
func Fingerprint(entity *openpgp.Entity) string {
	return fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint)
}

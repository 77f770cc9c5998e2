//go:build integration

package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// diskRepo is an on-disk repository with a worktree, the shape the installed
// hook operates on.
type diskRepo struct {
	*git.Repository
	Dir   string
	clock time.Time
}

func initDiskRepo(t *testing.T) *diskRepo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	return &diskRepo{
		Repository: repo,
		Dir:        dir,
		clock:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Commit writes a file into the worktree and commits it, optionally signed.
func (r *diskRepo) Commit(t *testing.T, name, message string, signer *openpgp.Entity) plumbing.Hash {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(r.Dir, name), []byte(message), 0o644))

	wt, err := r.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)

	r.clock = r.clock.Add(time.Minute)
	author := &object.Signature{Name: "test", Email: "test@example.com", When: r.clock}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:    author,
		Committer: author,
		SignKey:   signer,
	})
	require.NoError(t, err)
	return hash
}

// Checkout switches to a branch, creating it at HEAD when missing.
func (r *diskRepo) Checkout(t *testing.T, name string) {
	t.Helper()

	wt, err := r.Worktree()
	require.NoError(t, err)

	branch := plumbing.NewBranchReferenceName(name)
	err = wt.Checkout(&git.CheckoutOptions{Branch: branch})
	if err != nil {
		err = wt.Checkout(&git.CheckoutOptions{Branch: branch, Create: true})
	}
	require.NoError(t, err)
}

// Branch forces a branch ref to a hash, simulating pre-push server state.
func (r *diskRepo) Branch(t *testing.T, name string, hash plumbing.Hash) {
	t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), hash)
	require.NoError(t, r.Storer.SetReference(ref))
}

// SetHooks mutates the repository's on-disk hooks config section.
func (r *diskRepo) SetHooks(t *testing.T, mutate func(*config.Section)) {
	t.Helper()

	cfg, err := r.Config()
	require.NoError(t, err)
	mutate(cfg.Raw.Section("hooks"))
	require.NoError(t, r.SetConfig(cfg))
}

func newSigner(t *testing.T, name, email string) *openpgp.Entity {
	t.Helper()

	entity, err := openpgp.NewEntity(name, "", email, &packet.Config{
		Algorithm: packet.PubKeyAlgoEdDSA,
		Time:      func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return entity
}

func fingerprint(entity *openpgp.Entity) string {
	return fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint)
}

// writeKeyring exports the public half of each entity to an armored file and
// returns its path.
func writeKeyring(t *testing.T, dir string, entities ...*openpgp.Entity) string {
	t.Helper()

	path := filepath.Join(dir, "keyring.asc")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := armor.Encode(f, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	for _, entity := range entities {
		require.NoError(t, entity.Serialize(w))
	}
	require.NoError(t, w.Close())
	return path
}

package signature_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/pushgate/internal/testutil"
	"github.com/meigma/pushgate/signature"
)

func TestVerifier_VerifyCommit_Good(t *testing.T) {
	t.Parallel()

	alice := testutil.NewSigner(t, "Alice", "alice@example.com")
	r := testutil.InitRepo(t)
	hash := r.Commit(t, "signed", alice)

	commit, err := r.CommitObject(hash)
	require.NoError(t, err)

	verifier, err := signature.NewVerifier(signature.WithKeyring(openpgp.EntityList{alice}))
	require.NoError(t, err)

	result := verifier.VerifyCommit(commit)
	assert.Equal(t, signature.StatusGood, result.Status)
	assert.Equal(t, fmt.Sprintf("%016X", alice.PrimaryKey.KeyId), result.KeyID)
	assert.Equal(t, testutil.Fingerprint(alice), result.Fingerprint)
}

func TestVerifier_VerifyCommit_Absent(t *testing.T) {
	t.Parallel()

	r := testutil.InitRepo(t)
	hash := r.Commit(t, "unsigned", nil)

	commit, err := r.CommitObject(hash)
	require.NoError(t, err)

	verifier, err := signature.NewVerifier()
	require.NoError(t, err)

	result := verifier.VerifyCommit(commit)
	assert.Equal(t, signature.StatusAbsent, result.Status)
	assert.Empty(t, result.KeyID)
	assert.Empty(t, result.Fingerprint)
}

func TestVerifier_VerifyCommit_UnknownSigner(t *testing.T) {
	t.Parallel()

	alice := testutil.NewSigner(t, "Alice", "alice@example.com")
	bob := testutil.NewSigner(t, "Bob", "bob@example.com")
	r := testutil.InitRepo(t)
	hash := r.Commit(t, "signed by alice", alice)

	commit, err := r.CommitObject(hash)
	require.NoError(t, err)

	// Keyring only knows bob; alice's signature can not verify, but her
	// claimed issuer key id is still reported for diagnostics.
	verifier, err := signature.NewVerifier(signature.WithKeyring(openpgp.EntityList{bob}))
	require.NoError(t, err)

	result := verifier.VerifyCommit(commit)
	assert.Equal(t, signature.StatusBad, result.Status)
	assert.Equal(t, fmt.Sprintf("%016X", alice.PrimaryKey.KeyId), result.KeyID)
	assert.Empty(t, result.Fingerprint, "fingerprint is never taken from an unverified signature")
}

func TestVerifier_VerifyTag(t *testing.T) {
	t.Parallel()

	alice := testutil.NewSigner(t, "Alice", "alice@example.com")
	r := testutil.InitRepo(t)
	c1 := r.Commit(t, "base", nil)
	signed := r.AnnotatedTag(t, "v1", c1, alice)
	unsigned := r.AnnotatedTag(t, "v2", c1, nil)

	verifier, err := signature.NewVerifier(signature.WithKeyring(openpgp.EntityList{alice}))
	require.NoError(t, err)

	tag, err := r.TagObject(signed)
	require.NoError(t, err)
	result := verifier.VerifyTag(tag)
	assert.Equal(t, signature.StatusGood, result.Status)
	assert.Equal(t, testutil.Fingerprint(alice), result.Fingerprint)

	tag, err = r.TagObject(unsigned)
	require.NoError(t, err)
	result = verifier.VerifyTag(tag)
	assert.Equal(t, signature.StatusAbsent, result.Status)
}

func TestWithArmoredKeyring(t *testing.T) {
	t.Parallel()

	alice := testutil.NewSigner(t, "Alice", "alice@example.com")

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, alice.Serialize(w))
	require.NoError(t, w.Close())

	verifier, err := signature.NewVerifier(signature.WithArmoredKeyring(&buf))
	require.NoError(t, err)

	r := testutil.InitRepo(t)
	hash := r.Commit(t, "signed", alice)
	commit, err := r.CommitObject(hash)
	require.NoError(t, err)

	result := verifier.VerifyCommit(commit)
	assert.Equal(t, signature.StatusGood, result.Status)
}

func TestWithArmoredKeyring_Invalid(t *testing.T) {
	t.Parallel()

	_, err := signature.NewVerifier(signature.WithArmoredKeyring(strings.NewReader("not a keyring")))
	assert.Error(t, err)
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "good", signature.StatusGood.String())
	assert.Equal(t, "bad", signature.StatusBad.String())
	assert.Equal(t, "absent", signature.StatusAbsent.String())
}

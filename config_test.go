package pushgate_test

import (
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/pushgate"
	"github.com/meigma/pushgate/internal/testutil"
	"github.com/meigma/pushgate/trust"
)

// setHooks mutates the repository's local hooks section.
func setHooks(t *testing.T, repo *git.Repository, mutate func(*config.Section)) {
	t.Helper()
	cfg, err := repo.Config()
	require.NoError(t, err)
	mutate(cfg.Raw.Section("hooks"))
	require.NoError(t, repo.SetConfig(cfg))
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	r := testutil.InitRepo(t)
	cfg, err := pushgate.LoadConfig(r.Repository)
	require.NoError(t, err)
	assert.Equal(t, pushgate.Config{}, cfg)
}

func TestLoadConfig_BooleanForms(t *testing.T) {
	t.Parallel()

	r := testutil.InitRepo(t)
	setHooks(t, r.Repository, func(s *config.Section) {
		s.SetOption("allowunsignedcommits", "true")
		s.SetOption("allowunsignedtags", "yes")
		s.SetOption("allowcommitsonmaster", "on")
		s.SetOption("allowdeletetag", "1")
		s.SetOption("allowmodifytag", "TRUE")
		s.SetOption("allowdeletebranch", "false")
		s.SetOption("denycreatebranch", "nonsense")
	})

	cfg, err := pushgate.LoadConfig(r.Repository)
	require.NoError(t, err)

	assert.True(t, cfg.AllowUnsignedCommits)
	assert.True(t, cfg.AllowUnsignedTags)
	assert.True(t, cfg.AllowCommitsOnMaster)
	assert.True(t, cfg.AllowDeleteTag)
	assert.True(t, cfg.AllowModifyTag)
	assert.False(t, cfg.AllowDeleteBranch)
	assert.False(t, cfg.DenyCreateBranch)
	assert.False(t, cfg.AllowHotfixOnMaster)
	assert.False(t, cfg.AllowUnannotated)
}

func TestLoadTrustStore(t *testing.T) {
	t.Parallel()

	const (
		aliceFingerprint = "AAAABBBBCCCCDDDDEEEEFFFF0000111122223333"
		bobFingerprint   = "1111222233334444555566667777888899990000"
	)

	r := testutil.InitRepo(t)
	setHooks(t, r.Repository, func(s *config.Section) {
		s.AddOption("trustedkey", "alice:"+aliceFingerprint)
		s.AddOption("trustedkey", "bob: "+bobFingerprint)
	})

	store, err := pushgate.LoadTrustStore(r.Repository)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	alice, ok := store.Lookup("0000111122223333", aliceFingerprint)
	require.True(t, ok)
	assert.Equal(t, "alice", alice.Name)

	bob, ok := store.Lookup("7777888899990000", bobFingerprint)
	require.True(t, ok)
	assert.Equal(t, "bob", bob.Name)
}

func TestLoadTrustStore_Builtin(t *testing.T) {
	t.Parallel()

	const carolFingerprint = "9999888877776666555544443333222211110000"

	builtin, err := trust.NewCollaborator("carol", carolFingerprint)
	require.NoError(t, err)

	r := testutil.InitRepo(t)
	store, err := pushgate.LoadTrustStore(r.Repository, builtin)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	carol, ok := store.Lookup("3333222211110000", carolFingerprint)
	require.True(t, ok)
	assert.Equal(t, "carol", carol.Name)
}

func TestLoadTrustStore_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry string
		want  error
	}{
		{
			name:  "missing separator",
			entry: "aliceAAAABBBBCCCCDDDDEEEEFFFF0000111122223333",
			want:  pushgate.ErrInvalidTrustedKey,
		},
		{
			name:  "empty name",
			entry: ":AAAABBBBCCCCDDDDEEEEFFFF0000111122223333",
			want:  pushgate.ErrInvalidTrustedKey,
		},
		{
			name:  "short fingerprint",
			entry: "alice:AAAABBBB",
			want:  pushgate.ErrInvalidFingerprint,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := testutil.InitRepo(t)
			setHooks(t, r.Repository, func(s *config.Section) {
				s.AddOption("trustedkey", tt.entry)
			})

			_, err := pushgate.LoadTrustStore(r.Repository)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadKeyringPath(t *testing.T) {
	t.Parallel()

	r := testutil.InitRepo(t)

	path, err := pushgate.LoadKeyringPath(r.Repository)
	require.NoError(t, err)
	assert.Empty(t, path)

	setHooks(t, r.Repository, func(s *config.Section) {
		s.SetOption("keyring", "/etc/pushgate/keyring.asc")
	})

	path, err = pushgate.LoadKeyringPath(r.Repository)
	require.NoError(t, err)
	assert.Equal(t, "/etc/pushgate/keyring.asc", path)
}

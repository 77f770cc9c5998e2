package pushgate

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	format "github.com/go-git/go-git/v5/plumbing/format/config"

	"github.com/meigma/pushgate/policy"
	"github.com/meigma/pushgate/trust"
)

// Configuration section and keys read from the repository config. All policy
// options default to false when unset.
const (
	configSection    = "hooks"
	keyringOption    = "keyring"
	trustedKeyOption = "trustedkey"
)

// LoadConfig reads the boolean policy options from the repository's hooks
// section, merged across local, global and system scopes.
func LoadConfig(repo *git.Repository) (policy.Config, error) {
	section, err := hooksSection(repo)
	if err != nil {
		return policy.Config{}, err
	}
	return policy.Config{
		AllowUnsignedCommits: gitBool(section, "allowunsignedcommits"),
		AllowUnsignedTags:    gitBool(section, "allowunsignedtags"),
		AllowCommitsOnMaster: gitBool(section, "allowcommitsonmaster"),
		AllowHotfixOnMaster:  gitBool(section, "allowhotfixonmaster"),
		AllowUnannotated:     gitBool(section, "allowunannotated"),
		AllowDeleteTag:       gitBool(section, "allowdeletetag"),
		AllowModifyTag:       gitBool(section, "allowmodifytag"),
		AllowDeleteBranch:    gitBool(section, "allowdeletebranch"),
		DenyCreateBranch:     gitBool(section, "denycreatebranch"),
	}, nil
}

// LoadTrustStore builds the collaborator trust table from hooks.trustedkey
// entries of the form "name:fingerprint", appended to any compiled-in
// collaborators the caller supplies.
func LoadTrustStore(repo *git.Repository, builtin ...trust.Collaborator) (*trust.Store, error) {
	section, err := hooksSection(repo)
	if err != nil {
		return nil, err
	}

	collaborators := append([]trust.Collaborator(nil), builtin...)
	for _, entry := range section.OptionAll(trustedKeyOption) {
		name, fingerprint, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTrustedKey, entry)
		}
		collaborator, err := trust.NewCollaborator(strings.TrimSpace(name), fingerprint)
		if err != nil {
			return nil, err
		}
		collaborators = append(collaborators, collaborator)
	}
	return trust.NewStore(collaborators...)
}

// LoadKeyringPath returns the configured hooks.keyring path, empty when
// unset.
func LoadKeyringPath(repo *git.Repository) (string, error) {
	section, err := hooksSection(repo)
	if err != nil {
		return "", err
	}
	return section.Option(keyringOption), nil
}

func hooksSection(repo *git.Repository) (*format.Section, error) {
	config, err := repo.ConfigScoped(gitconfig.SystemScope)
	if err != nil {
		return nil, fmt.Errorf("read repository config: %w", err)
	}
	return config.Raw.Section(configSection), nil
}

// gitBool parses a git-style boolean option, defaulting to false.
func gitBool(section *format.Section, key string) bool {
	switch strings.ToLower(section.Option(key)) {
	case "true", "yes", "on", "1":
		return true
	default:
		return false
	}
}

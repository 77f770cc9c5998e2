// Command pushgate is a git update hook enforcing push-acceptance policy.
//
// Install it as .git/hooks/update (or hooks/update in a bare repository).
// git invokes it once per ref with three positional arguments: the full ref
// name, the old revision and the new revision. The process exits 0 only when
// the update is fully accepted; any rejection prints the reason to stderr
// and exits non-zero, which makes git refuse the update.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	"github.com/meigma/pushgate"
	"github.com/meigma/pushgate/signature"
	"github.com/meigma/pushgate/trust"
)

var (
	rejectColor = color.New(color.FgRed, color.Bold)
	acceptColor = color.New(color.FgGreen)
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "pushgate <ref> <old-rev> <new-rev>",
		Short:         "decide whether a ref update is accepted",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1], args[2], verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log decision details to stderr")
	return cmd
}

func run(refName, oldRev, newRev string, verbose bool) error {
	logger := newLogger(verbose)

	update, err := pushgate.ParseRefUpdate(refName, oldRev, newRev)
	if err != nil {
		rejectColor.Fprintf(os.Stderr, "*** %v\n", err)
		return err
	}

	repo, err := openRepository()
	if err != nil {
		rejectColor.Fprintf(os.Stderr, "*** cannot open repository: %v\n", err)
		return err
	}

	store, err := pushgate.LoadTrustStore(repo, builtinCollaborators()...)
	if err != nil {
		rejectColor.Fprintf(os.Stderr, "*** cannot load trust table: %v\n", err)
		return err
	}

	verifier, err := loadVerifier(repo, logger)
	if err != nil {
		rejectColor.Fprintf(os.Stderr, "*** cannot load keyring: %v\n", err)
		return err
	}

	gate, err := pushgate.NewGate(repo,
		pushgate.WithTrustStore(store),
		pushgate.WithVerifier(verifier),
		pushgate.WithLogger(logger),
	)
	if err != nil {
		rejectColor.Fprintf(os.Stderr, "*** %v\n", err)
		return err
	}

	verdict := gate.Check(context.Background(), update)
	if !verdict.Accepted {
		rejectColor.Fprintf(os.Stderr, "*** %s: %s\n", refName, verdict.Reason)
		return verdict.Err()
	}
	if verbose {
		acceptColor.Fprintf(os.Stderr, "%s: update accepted\n", refName)
	}
	return nil
}

// openRepository opens the repository the hook runs in. git sets GIT_DIR for
// hooks; outside a hook the repository is discovered from the working
// directory.
func openRepository() (*git.Repository, error) {
	if dir := os.Getenv("GIT_DIR"); dir != "" {
		return git.PlainOpen(dir)
	}
	return git.PlainOpenWithOptions(".", &git.PlainOpenOptions{DetectDotGit: true})
}

// loadVerifier builds the signature verifier from the armored keyring
// configured as hooks.keyring. Without a keyring the verifier is empty, so
// every required signature verifies as bad and the push fails closed.
func loadVerifier(repo *git.Repository, logger *slog.Logger) (*signature.Verifier, error) {
	path, err := pushgate.LoadKeyringPath(repo)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return signature.NewVerifier(signature.WithLogger(logger))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring %s: %w", path, err)
	}
	defer f.Close()

	return signature.NewVerifier(
		signature.WithArmoredKeyring(f),
		signature.WithLogger(logger),
	)
}

// builtinCollaborators is the administrator-maintained trust table compiled
// into the hook. Entries from hooks.trustedkey are appended to it.
func builtinCollaborators() []trust.Collaborator {
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

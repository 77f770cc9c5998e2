package pushgate

import (
	"log/slog"

	"github.com/meigma/pushgate/history"
	"github.com/meigma/pushgate/policy"
	"github.com/meigma/pushgate/signature"
	"github.com/meigma/pushgate/trust"
)

// GateOption configures a Gate.
type GateOption func(*Gate) error

// WithConfig sets the policy configuration, overriding the values loaded
// from the repository's hooks section.
func WithConfig(config policy.Config) GateOption {
	return func(g *Gate) error {
		g.config = config
		g.configSet = true
		return nil
	}
}

// WithTrustStore sets the collaborator trust table.
func WithTrustStore(store *trust.Store) GateOption {
	return func(g *Gate) error {
		g.trust = store
		return nil
	}
}

// WithVerifier sets the signature verifier.
func WithVerifier(verifier *signature.Verifier) GateOption {
	return func(g *Gate) error {
		g.verifier = verifier
		return nil
	}
}

// WithClassifier sets the commit classifier. Mostly useful in tests.
func WithClassifier(classifier *history.Classifier) GateOption {
	return func(g *Gate) error {
		g.classifier = classifier
		return nil
	}
}

// WithProtectedBranch overrides the branch subject to the protected-branch
// rules. Default: master.
func WithProtectedBranch(name string) GateOption {
	return func(g *Gate) error {
		g.protected = name
		return nil
	}
}

// WithLogger sets a custom logger for the gate and the components it builds.
func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) error {
		g.logger = logger
		return nil
	}
}

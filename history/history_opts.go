package history

import "log/slog"

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithLogger sets a custom logger for the classifier.
func WithLogger(logger *slog.Logger) ClassifierOption {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// Package logging centralizes structured logger construction, following
// aman-zulfiqar-solana-swap-indexer's logrus.Logger-per-component
// convention.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger configured from a level string (e.g. "info",
// "debug"). An unrecognized level falls back to info.
func New(component, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

// Component returns a logger entry pre-tagged with a "component" field, the
// pattern used by every subsystem logger constructed from New.
func Component(log *logrus.Logger, component string) *logrus.Entry {
	return log.WithField("component", component)
}

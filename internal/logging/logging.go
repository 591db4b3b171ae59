// Package logging builds the process logger shared by the API and the
// ratings worker.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr. format is "json" or "text";
// an unknown level falls back to info.
func New(service, level, format string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l.WithField("service", service)
}

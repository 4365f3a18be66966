// Package logging builds the logrus logger shared by all components.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"energyboard/internal/config"
)

// New returns a text logger writing to out, or to cfg.File when set. debug
// forces the debug level regardless of cfg.Level. The returned closer
// releases the log file, if any.
func New(cfg config.LogConfig, debug bool, out io.Writer) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{QuoteEmptyFields: true, FullTimestamp: true})
	log.SetOutput(out)

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	if cfg.File == "" {
		return log, nopCloser{}, nil
	}
	file, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		// keep logging to out
		log.WithError(err).Warnf("cannot open log file %s", cfg.File)
		return log, nopCloser{}, nil
	}
	log.SetOutput(file)
	return log, file, nil
}

// ParseLevel accepts logrus level names; empty means info
func ParseLevel(s string) (logrus.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

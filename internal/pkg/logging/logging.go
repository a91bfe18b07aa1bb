package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup configures the process-wide logrus logger.
// Production uses JSON output so lines can be shipped as-is; development keeps the text formatter.
func Setup(level string, production bool) error {
	return configure(log.StandardLogger(), os.Stdout, level, production)
}

func configure(l *log.Logger, out io.Writer, level string, production bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	l.SetOutput(out)
	l.SetLevel(lvl)
	if production {
		l.SetFormatter(&log.JSONFormatter{})
	} else {
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

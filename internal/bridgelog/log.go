package bridgelog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds the process-wide logger. path is the configured log file; an
// empty path falls back to stderr, mirroring the teacher's
// log.SetOutput(os.Stderr) startup sequence, and a path that can't be opened
// is returned as an error. stdout is never written to, since it carries the
// MCP stdio transport.
func New(path, level string) (zerolog.Logger, error) {
	var w io.Writer = os.Stderr
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, err
		}
		w = f
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	log := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return log, nil
}

// Component returns a child logger tagged with the given component name,
// so every log line reads "component=session workspace=metals ...".
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log output formats accepted by observability.log_format.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// InitLogger builds the process logger. Output defaults to stdout.
func InitLogger(service, level string, output io.Writer) zerolog.Logger {
	if output == nil {
		output = os.Stdout
	}

	return zerolog.New(output).
		Level(parseLogLevel(level)).
		With().
		Timestamp().
		Str("service", service).
		Caller().
		Logger()
}

// LogOutput wraps out for the configured format. Anything but "console"
// keeps structured JSON lines.
func LogOutput(format string, out io.Writer) io.Writer {
	if strings.EqualFold(strings.TrimSpace(format), LogFormatConsole) {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: out != os.Stdout}
	}
	return out
}

func parseLogLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// Component tags a logger with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// WithReference tags a logger with the store transaction reference.
func WithReference(logger zerolog.Logger, reference string) zerolog.Logger {
	return logger.With().Str("reference", reference).Logger()
}

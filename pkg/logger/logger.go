package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Configure sets the global level and output format. Development gets a
// console writer, everything else gets JSON lines.
func Configure(env string, output io.Writer) {
	if output == nil {
		output = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if env == "development" {
		level = zerolog.DebugLevel
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}
	zerolog.SetGlobalLevel(level)

	base = zerolog.New(output).With().Timestamp().Logger()
}

// L returns the process logger.
func L() *zerolog.Logger {
	return &base
}

// With returns a child logger tagged with a component name.
func With(component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}

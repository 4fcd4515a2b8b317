// Package logging configures the structured loggers used across gqlprobe.
//
// It is a thin layer over log/slog. Every component takes a *slog.Logger and falls
// back to Nop when none is given:
//
//	log := logging.New(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON})
//	scanner := engine.New(engine.Config{Logger: log})
//
// Console output goes to stderr so that result lines on stdout stay machine-readable.
// A second destination (for example a JSON log file) can be attached with Tee.
package logging

package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the zerolog logger with the specified debug mode and output format.
func InitLogger(debug, human bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano                 // always initialize base logger with timestamp.
	base := zerolog.New(os.Stdout).With().Timestamp().Logger() // initialize base logger.
	if human {
		log.Logger = base.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339Nano,
		}) // select output format.
	} else {
		log.Logger = base // use JSON logger.
	}
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel) // set debug level.
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel) // set info level.
	}
}

// Disable silences all log output, used by CLI inspection commands so tables stay clean.
func Disable() {
	log.Logger = log.Logger.Level(zerolog.Disabled)
}

// LogPluginOutcome logs one diagnostic line for a plugin that did not register.
func LogPluginOutcome(name, state, reason string) {
	log.Warn().
		Str("event", "plugin_rejected").
		Str("plugin", name).
		Str("state", state).
		Str("reason", reason).
		Msg("plugin not registered")
}

// LogCycleSummary logs a single info line after a full load cycle with counts per outcome.
func LogCycleSummary(registered, rejected, failed int) {
	log.Info().
		Str("event", "load_cycle_done").
		Int("registered", registered).
		Int("rejected", rejected).
		Int("failed", failed).
		Msg("plugins loaded")
}

// Package logger configures the global zerolog logger for the detect and
// remediate binaries.
package logger

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. Output goes to stdout: the
// endpoint-management orchestrator captures stdout as the run transcript and
// takes the verdict from the process exit code alone.
func Setup(verbose, jsonOut bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if jsonOut {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: !isatty.IsTerminal(os.Stdout.Fd()),
	})
}

// InitTestEnv makes package tests log verbose and colorful.
func InitTestEnv() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

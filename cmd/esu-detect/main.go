// esu-detect reports whether this host holds a licensed Extended Security
// Updates (ESU) activation.
//
// The process exit code is the whole contract: 0 means at least one ESU
// record is fully licensed, 1 means none is (or the inventory could not be
// read). Log output on stdout is informational only; endpoint-management
// orchestrators pair this binary with esu-remediate.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gw37/ej-esu/internal/config"
	"github.com/gw37/ej-esu/internal/esu"
	"github.com/gw37/ej-esu/internal/inventory"
	"github.com/gw37/ej-esu/internal/logger"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"
)

// errNonCompliant signals exit 1 without a second error log; the verdict is
// already in the transcript.
var errNonCompliant = errors.New("no licensed ESU record")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errNonCompliant) {
			log.Error().Err(err).Msg("detection failed")
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		flagConfig  string
		flagVerbose bool
		flagJSON    bool
	)

	cmd := &cobra.Command{
		Use:           "esu-detect",
		Short:         "Report whether a licensed ESU activation exists on this host",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Setup(flagVerbose, flagJSON)

			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			if cfg.Verbose && !flagVerbose {
				logger.Setup(true, flagJSON)
			}

			reverse := cfg.ReverseActivationIDs()

			products, err := inventory.Snapshot(cmd.Context(), inventory.Default(), reverse)
			if err != nil {
				return err
			}
			inventory.LogRecords(products, reverse)

			if !esu.Compliant(products) {
				log.Info().Msg("verdict: no licensed ESU record, remediation required")
				return errNonCompliant
			}

			log.Info().Msg("verdict: a licensed ESU record is present")
			return nil
		},
	}

	cmd.Flags().StringVar(&flagConfig, "config", "", "optional YAML config file")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "structured JSON logs")

	return cmd
}

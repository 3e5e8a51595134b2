// esu-remediate installs and activates an Extended Security Updates (ESU)
// product key when the host has no licensed ESU record.
//
// The flow is guard, check, install, activate, re-check: it requires an
// elevated process on a supported OS, exits early when an ESU record is
// already licensed, and otherwise installs the first configured year's key
// and requests online activation through slmgr.vbs. The licensing tool's
// exit codes are advisory; the verdict comes from re-querying the inventory.
// Exit code 0 means the host ended up licensed, 1 means anything else.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gw37/ej-esu/internal/config"
	"github.com/gw37/ej-esu/internal/healing"
	"github.com/gw37/ej-esu/internal/inventory"
	"github.com/gw37/ej-esu/internal/logger"
	"github.com/gw37/ej-esu/internal/slmgr"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"
)

// errNotRemediated signals exit 1 without a second error log; the healing
// flow already wrote the verdict.
var errNotRemediated = errors.New("host has no licensed ESU record")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errNotRemediated) {
			log.Error().Err(err).Msg("remediation failed")
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		flagConfig  string
		flagVerbose bool
		flagJSON    bool
		flagDryRun  bool
	)

	cmd := &cobra.Command{
		Use:           "esu-remediate",
		Short:         "Install and activate an ESU product key if none is licensed",
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

			tool := slmgr.New(cfg.SlmgrPath, cfg.SlmgrTimeout(), cfg.SettleDelay())
			rem := healing.New(cfg, inventory.Default(), tool, flagDryRun)

			compliant, err := rem.Run(cmd.Context())
			if err != nil {
				return err
			}
			if !compliant {
				return errNotRemediated
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagConfig, "config", "", "optional YAML config file")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "structured JSON logs")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "evaluate and select but do not install or activate")

	return cmd
}

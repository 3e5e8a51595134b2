// Package healing implements the ESU remediation flow: guard, check,
// install, activate, re-check. One run is one pass; there are no internal
// retries, and the orchestrator that launches the binary serializes runs.
package healing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gw37/ej-esu/internal/config"
	"github.com/gw37/ej-esu/internal/esu"
	"github.com/gw37/ej-esu/internal/inventory"
	"github.com/gw37/ej-esu/internal/platform"
)

// Guard failures. Both abort the run before any licensing change.
var (
	ErrNotElevated   = errors.New("administrative rights are required")
	ErrUnsupportedOS = errors.New("unsupported OS major version")
)

// LicenseTool is the slice of the slmgr tool the flow needs.
type LicenseTool interface {
	InstallKey(ctx context.Context, key string) (string, error)
	Activate(ctx context.Context, activationID string) (string, error)
}

// Remediator drives one remediation pass.
type Remediator struct {
	cfg       *config.Config
	inventory inventory.Source
	tool      LicenseTool
	dryRun    bool

	// platform guards, overridable in tests
	isElevated  func() bool
	osVersion   func() platform.OSVersion
	editionInfo func(ctx context.Context) (platform.Edition, error)
}

// New returns a Remediator bound to the real platform guards.
func New(cfg *config.Config, src inventory.Source, tool LicenseTool, dryRun bool) *Remediator {
	return &Remediator{
		cfg:         cfg,
		inventory:   src,
		tool:        tool,
		dryRun:      dryRun,
		isElevated:  platform.IsElevated,
		osVersion:   platform.Version,
		editionInfo: platform.EditionInfo,
	}
}

// Run executes one remediation pass and reports whether the host ended up
// with a licensed ESU record. A nil error with compliant=false means the
// flow ran but the re-query still shows nothing licensed.
func (r *Remediator) Run(ctx context.Context) (bool, error) {
	if ed, err := r.editionInfo(ctx); err == nil {
		log.Info().Str("edition", ed.String()).Msg("host")
	} else {
		log.Debug().Err(err).Msg("edition info unavailable")
	}

	if !r.isElevated() {
		return false, ErrNotElevated
	}
	if v := r.osVersion(); v.Major != 10 {
		return false, fmt.Errorf("%w: running %s", ErrUnsupportedOS, v)
	}

	reverse := r.cfg.ReverseActivationIDs()

	products, err := inventory.Snapshot(ctx, r.inventory, reverse)
	if err != nil {
		return false, err
	}
	inventory.LogRecords(products, reverse)

	if esu.Compliant(products) {
		log.Info().Msg("an ESU record is already licensed, nothing to do")
		return true, nil
	}

	entry, ok := esu.SelectTarget(r.cfg.Keys, r.cfg.ActivationIDs, products)
	if !ok {
		return false, fmt.Errorf("no product keys configured")
	}
	if err := esu.ValidateKey(entry.Key); err != nil {
		return false, fmt.Errorf("product key for %s: %w", entry.Year, err)
	}
	activationID := r.cfg.ActivationIDs[entry.Year]

	log.Info().
		Str("year", entry.Year).
		Str("key", esu.MaskKey(entry.Key)).
		Str("activation_id", activationID).
		Msg("selected remediation target")

	if r.dryRun {
		log.Info().Msg("dry run, skipping key install and activation")
		return false, nil
	}

	// Tool exit codes are unreliable for both verbs; failures are warnings
	// and the re-query below decides the outcome.
	if out, err := r.tool.InstallKey(ctx, entry.Key); err != nil {
		log.Warn().Str("detail", maskKey(err.Error(), entry.Key)).Msg("key install reported an error, trusting the re-query")
	} else {
		log.Info().Msg("product key installed")
		log.Debug().Str("output", maskKey(out, entry.Key)).Msg("slmgr /ipk output")
	}

	if out, err := r.tool.Activate(ctx, activationID); err != nil {
		log.Warn().Str("detail", err.Error()).Msg("activation request reported an error, trusting the re-query")
	} else {
		log.Info().Msg("online activation requested")
		log.Debug().Str("output", out).Msg("slmgr /ato output")
	}

	products, err = inventory.Snapshot(ctx, r.inventory, reverse)
	if err != nil {
		return false, fmt.Errorf("re-query after remediation: %w", err)
	}
	inventory.LogRecords(products, reverse)

	if !esu.Compliant(products) {
		log.Error().Msg("no licensed ESU record after remediation")
		return false, nil
	}

	log.Info().Msg("ESU activation verified")
	return true, nil
}

// maskKey hides every occurrence of the raw product key in tool output
// before it reaches the log; slmgr echoes the key on success.
func maskKey(s, key string) string {
	if key == "" {
		return s
	}
	return strings.ReplaceAll(s, key, esu.MaskKey(key))
}

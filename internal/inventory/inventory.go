// Package inventory reads the Windows licensing inventory. Two providers
// exist: the native WMI provider (COM/OLE) and a PowerShell subprocess
// fallback for hosts where COM access misbehaves. The Chain tries them in
// order and trusts the first one that answers.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"github.com/gw37/ej-esu/internal/esu"
)

// ErrNoProvider is returned by a chain with no configured providers.
var ErrNoProvider = errors.New("no license inventory provider configured")

// Source produces raw licensing records. A single Provider and the Chain
// both satisfy it.
type Source interface {
	Products(ctx context.Context) ([]esu.Product, error)
}

// Provider reads the licensing inventory from one backend.
type Provider interface {
	Source

	// Name identifies the provider in logs.
	Name() string
}

// Chain tries providers in order, returning the first successful read.
// Individual failures are warnings; the chain fails only when every provider
// fails.
type Chain struct {
	providers []Provider
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Default returns the standard provider order: native WMI first, PowerShell
// fallback second.
func Default() *Chain {
	return NewChain(NewWMIProvider(), NewPowerShellProvider())
}

// Products implements Source over the provider list.
func (c *Chain) Products(ctx context.Context) ([]esu.Product, error) {
	if len(c.providers) == 0 {
		return nil, ErrNoProvider
	}

	var errs error
	for _, p := range c.providers {
		products, err := p.Products(ctx)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("license inventory provider failed")
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}

		log.Debug().Str("provider", p.Name()).Int("records", len(products)).Msg("license inventory read")
		return products, nil
	}

	return nil, fmt.Errorf("all license inventory providers failed: %w", errs)
}

// Snapshot reads the raw inventory and reduces it to the known ESU records.
// An empty snapshot is a valid result, not an error.
func Snapshot(ctx context.Context, src Source, reverseIDs map[string]string) ([]esu.Product, error) {
	raw, err := src.Products(ctx)
	if err != nil {
		return nil, err
	}
	return esu.Filter(raw, reverseIDs), nil
}

// LogRecords writes one line per ESU record for the technician reading the
// run transcript. The partial key is the licensing service's own five
// character fragment, safe to log.
func LogRecords(products []esu.Product, reverseIDs map[string]string) {
	if len(products) == 0 {
		log.Info().Msg("no ESU records with key material found")
		return
	}

	for _, p := range products {
		log.Info().
			Str("year", esu.YearFor(reverseIDs, p.ActivationID)).
			Str("activation_id", p.ActivationID).
			Str("status", p.Status.String()).
			Str("partial_key", p.PartialProductKey).
			Msg(p.Name)
	}
}

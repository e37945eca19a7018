package provider

import (
	"context"

	"loadwatch-engine/internal/extract"
)

// Provider fetches one source's current listing as raw table rows. A
// provider that returns an error fails only its own slice of the cycle;
// the poller carries on with the rest.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) ([]extract.RawRow, error)
}

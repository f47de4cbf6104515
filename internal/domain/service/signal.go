package service

import (
	"context"

	"TradeSense/internal/domain/models"
)

// SignalDeriver turns the freshly fetched tick plus recent closes into a trading hint.
// The sequencer only guarantees the tick is available before invoking it; the
// derivation itself is a collaborator concern and may be swapped out.
type SignalDeriver interface {
	Derive(ctx context.Context, inst models.Instrument, tick models.Tick, closes []float64) (models.Signal, error)
}

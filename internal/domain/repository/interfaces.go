package repository

import (
	"context"
	"time"

	"QuantBack/internal/domain/models"
)

// MarketStore serves historical OHLCV rows sorted by (symbol, date).
// A zero `to` means "through the latest session".
type MarketStore interface {
	Prices(ctx context.Context, symbols []string, from, to time.Time) ([]models.PriceRow, error)
}

// FeatureStore serves point-in-time derived features keyed by (date, symbol).
type FeatureStore interface {
	Features(ctx context.Context, symbols []string, from, to time.Time) ([]models.FeatureRow, error)
}

// Metrics records operational metrics.
type Metrics interface {
	RecordPhase(strategy, phase string, seconds float64)
	RecordTrades(strategy, kind string, n int)
	RecordError(kind string)
	RecordIndicator(name string, seconds float64)
}

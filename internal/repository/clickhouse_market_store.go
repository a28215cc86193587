package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"QuantBack/internal/domain/models"
	pkgch "QuantBack/pkg/clickhouse"
	applogger "QuantBack/pkg/logger"
)

// CHMarketStore serves OHLCV history from ClickHouse.
type CHMarketStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHMarketStore(ch *pkgch.Client, table string) *CHMarketStore {
	return &CHMarketStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHMarketStore) SetLogger(l *applogger.Logger) { s.l = l }

// Prices returns rows for the given symbols sorted by (symbol, date). An
// empty symbol list selects all symbols; a zero `to` reads through the
// latest session.
func (s *CHMarketStore) Prices(ctx context.Context, symbols []string, from, to time.Time) ([]models.PriceRow, error) {
	start := time.Now()

	var sb strings.Builder
	fmt.Fprintf(&sb, `
        SELECT date, symbol, open, high, low, close, volume
        FROM %s
        WHERE date >= ?
    `, s.table)
	args := []any{from}
	if !to.IsZero() {
		sb.WriteString(" AND date <= ?")
		args = append(args, to)
	}
	if len(symbols) > 0 {
		sb.WriteString(" AND symbol IN (" + placeholders(len(symbols)) + ")")
		for _, sym := range symbols {
			args = append(args, sym)
		}
	}
	sb.WriteString(" ORDER BY symbol ASC, date ASC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse prices query error",
				applogger.String("table", s.table),
				applogger.Int("symbols", len(symbols)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriceRow, 0, 4096)
	for rows.Next() {
		var r models.PriceRow
		if err := rows.Scan(&r.Date, &r.Symbol, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse prices ok",
			applogger.String("table", s.table),
			applogger.Int("symbols", len(symbols)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

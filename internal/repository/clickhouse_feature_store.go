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

// CHFeatureStore serves the point-in-time feature table from ClickHouse.
// The table is wide and evolves with the training pipeline, so rows are
// read generically: every numeric column lands in the row's value map.
type CHFeatureStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHFeatureStore(ch *pkgch.Client, table string) *CHFeatureStore {
	return &CHFeatureStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHFeatureStore) SetLogger(l *applogger.Logger) { s.l = l }

// Features returns feature rows for the symbols between from and to
// inclusive, keyed by (date, symbol).
func (s *CHFeatureStore) Features(ctx context.Context, symbols []string, from, to time.Time) ([]models.FeatureRow, error) {
	start := time.Now()

	var sb strings.Builder
	fmt.Fprintf(&sb, `
        SELECT *
        FROM %s
        WHERE date >= ? AND date <= ?
    `, s.table)
	args := []any{from, to}
	if len(symbols) > 0 {
		sb.WriteString(" AND symbol IN (" + placeholders(len(symbols)) + ")")
		for _, sym := range symbols {
			args = append(args, sym)
		}
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse features query error",
				applogger.String("table", s.table),
				applogger.Int("symbols", len(symbols)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("feature columns: %w", err)
	}

	out := make([]models.FeatureRow, 0, 1024)
	for rows.Next() {
		holders := make([]any, len(cols))
		for i := range holders {
			holders[i] = new(any)
		}
		if err := rows.Scan(holders...); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}

		row := models.FeatureRow{Values: make(map[string]float64, len(cols))}
		for i, col := range cols {
			v := *(holders[i].(*any))
			switch col {
			case "date":
				if ts, ok := v.(time.Time); ok {
					row.Date = ts
				}
			case "symbol":
				if sym, ok := v.(string); ok {
					row.Symbol = sym
				}
			default:
				if f, ok := asFloat(v); ok {
					row.Values[col] = f
				}
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse features ok",
			applogger.String("table", s.table),
			applogger.Int("symbols", len(symbols)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int:
		return float64(n), true
	case *float64:
		if n != nil {
			return *n, true
		}
	}
	return 0, false
}

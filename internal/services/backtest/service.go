package backtest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/domain/repository"
	"QuantBack/internal/panel"
	"QuantBack/internal/services/mlmodels"
	"QuantBack/internal/services/strategies"
	"QuantBack/pkg/logger"
	"QuantBack/pkg/util"
)

// Scorer scores feature matrices with the model ensemble.
type Scorer interface {
	Score(X [][]float64) (mlmodels.Predictions, error)
}

// Service orchestrates a full backtest run: price loading, the parameter
// sweep, trade dedup, feature building and model scoring.
type Service struct {
	market    repository.MarketStore
	features  repository.FeatureStore
	scorer    Scorer
	metrics   repository.Metrics
	log       *logger.Logger
	watchlist []string
}

// NewService wires the orchestrator.
func NewService(
	market repository.MarketStore,
	features repository.FeatureStore,
	scorer Scorer,
	metrics repository.Metrics,
	log *logger.Logger,
	watchlist []string,
) *Service {
	return &Service{
		market:    market,
		features:  features,
		scorer:    scorer,
		metrics:   metrics,
		log:       log,
		watchlist: watchlist,
	}
}

// Run executes the named strategy's parameter sweep over price history from
// startDate. An empty symbol list falls back to the configured watchlist.
func (s *Service) Run(ctx context.Context, strategyName string, startDate time.Time, symbols []string) (*models.BacktestResult, error) {
	totalStart := time.Now()

	// resolve the strategy before touching storage
	def, err := strategies.Lookup(strategyName)
	if err != nil {
		s.metrics.RecordError("unknown_strategy")
		return nil, err
	}

	if len(symbols) == 0 {
		symbols = s.watchlist
	}
	s.log.Info("starting backtest",
		logger.String("strategy", strategyName),
		logger.String("start_date", util.FormatDate(startDate)),
		logger.Int("symbols", len(symbols)),
	)

	loadStart := time.Now()
	rows, err := s.market.Prices(ctx, symbols, startDate, time.Time{})
	if err != nil {
		s.metrics.RecordError("price_load")
		return nil, fmt.Errorf("load prices: %w", err)
	}
	if len(rows) == 0 {
		s.metrics.RecordError("no_price_data")
		return nil, fmt.Errorf("%w: no prices for %d symbols from %s", models.ErrNoData, len(symbols), util.FormatDate(startDate))
	}
	p, err := panel.Build(rows)
	if err != nil {
		return nil, fmt.Errorf("build price panel: %w", err)
	}
	dataSeconds := time.Since(loadStart).Seconds()
	s.metrics.RecordPhase(strategyName, "data_loading", dataSeconds)
	s.log.Info("price panel ready",
		logger.Int("sessions", p.NumRows()),
		logger.Int("symbols", p.NumCols()),
		logger.Float64("seconds", dataSeconds),
	)

	strategyStart := time.Now()
	closed, open, err := s.runSweep(ctx, def, p)
	if err != nil {
		s.metrics.RecordError("strategy")
		return nil, err
	}
	trades, err := Combine(p, closed, open)
	if err != nil {
		return nil, err
	}
	strategySeconds := time.Since(strategyStart).Seconds()
	s.metrics.RecordPhase(strategyName, "strategy", strategySeconds)

	featureStart := time.Now()
	trades, err = s.augment(ctx, trades)
	if err != nil {
		s.metrics.RecordError("feature_build")
		return nil, err
	}
	featureSeconds := time.Since(featureStart).Seconds()
	s.metrics.RecordPhase(strategyName, "feature_building", featureSeconds)

	predictionStart := time.Now()
	if err := s.score(trades); err != nil {
		s.metrics.RecordError("prediction")
		return nil, err
	}
	predictionSeconds := time.Since(predictionStart).Seconds()
	s.metrics.RecordPhase(strategyName, "prediction", predictionSeconds)

	result := s.respond(p, trades)
	result.ExecutionTime = models.ExecutionTime{
		TotalSeconds:           roundSeconds(time.Since(totalStart).Seconds()),
		DataLoadingSeconds:     roundSeconds(dataSeconds),
		StrategySeconds:        roundSeconds(strategySeconds),
		FeatureBuildingSeconds: roundSeconds(featureSeconds),
		PredictionSeconds:      roundSeconds(predictionSeconds),
	}
	s.metrics.RecordTrades(strategyName, string(models.KindOpen), len(result.OpenTrades))
	s.metrics.RecordTrades(strategyName, string(models.KindClosed), len(result.ClosedTrades))
	s.log.Info("backtest finished",
		logger.String("strategy", strategyName),
		logger.Int("open_trades", len(result.OpenTrades)),
		logger.Int("closed_trades", len(result.ClosedTrades)),
		logger.Float64("seconds", result.ExecutionTime.TotalSeconds),
	)
	return result, nil
}

// runSweep simulates every parameter set concurrently, preserving sweep
// order in the returned closed and open trade lists.
func (s *Service) runSweep(ctx context.Context, def strategies.Definition, p *panel.Panel) (closed, open []models.Trade, err error) {
	results := make([][]models.Trade, len(def.Sets))
	errs := make([]error, len(def.Sets))

	var wg sync.WaitGroup
	for idx, set := range def.Sets {
		wg.Add(1)
		go func(idx int, set models.ParameterSet) {
			defer wg.Done()
			strat := def.Build(set)
			entries, exits, serr := strat.Signals(p)
			if serr != nil {
				errs[idx] = fmt.Errorf("signals for set %d: %w", idx, serr)
				return
			}
			trades, serr := Simulate(p, entries, exits, set)
			if serr != nil {
				errs[idx] = fmt.Errorf("simulate set %d: %w", idx, serr)
				return
			}
			results[idx] = trades
		}(idx, set)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	for _, e := range errs {
		if e != nil {
			return nil, nil, e
		}
	}
	for _, trades := range results {
		for _, t := range trades {
			if t.Open() {
				open = append(open, t)
			} else {
				closed = append(closed, t)
			}
		}
	}
	return closed, open, nil
}

// augment joins trades with the feature store over the span of their entry
// dates. With no trades there is nothing to join.
func (s *Service) augment(ctx context.Context, trades []models.Trade) ([]models.Trade, error) {
	if len(trades) == 0 {
		return trades, nil
	}
	symbolSet := make(map[string]struct{})
	minDate, maxDate := trades[0].Date, trades[0].Date
	for _, t := range trades {
		symbolSet[t.Symbol] = struct{}{}
		if t.Date.Before(minDate) {
			minDate = t.Date
		}
		if t.Date.After(maxDate) {
			maxDate = t.Date
		}
	}
	symbols := make([]string, 0, len(symbolSet))
	for sym := range symbolSet {
		symbols = append(symbols, sym)
	}

	rows, err := s.features.Features(ctx, symbols, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}
	joined := BuildFeatures(trades, rows)
	s.log.Info("feature join",
		logger.Int("trades_in", len(trades)),
		logger.Int("trades_out", len(joined)),
		logger.Int("feature_rows", len(rows)),
	)
	return joined, nil
}

func (s *Service) score(trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	preds, err := s.scorer.Score(Vectorize(trades))
	if err != nil {
		return fmt.Errorf("score trades: %w", err)
	}
	for i := range trades {
		trades[i].PredXGB = preds.XGB[i]
		trades[i].PredLGBM = preds.LGBM[i]
		trades[i].PredCatBoost = preds.CatBoost[i]
	}
	return nil
}

// respond partitions scored trades into the open and closed response lists.
func (s *Service) respond(p *panel.Panel, trades []models.Trade) *models.BacktestResult {
	result := &models.BacktestResult{
		OpenTrades:   []models.BacktestTrade{},
		ClosedTrades: []models.BacktestTrade{},
	}
	for _, t := range trades {
		bt := models.BacktestTrade{
			Symbol:       t.Symbol,
			Date:         util.FormatDate(t.Date),
			EntryPrice:   t.EntryPrice,
			PnL:          t.PnL,
			Return:       t.Return,
			PredXGB:      t.PredXGB,
			PredLGBM:     t.PredLGBM,
			PredCatBoost: t.PredCatBoost,
			MSRRank:      t.MSRRank,
			Metadata:     t.Metadata,
			Kind:         t.Kind,
			EntryIdx:     t.EntryIdx,
		}
		if t.Open() {
			result.OpenTrades = append(result.OpenTrades, bt)
			continue
		}
		exitIdx := t.ExitIdx
		bt.ExitIdx = &exitIdx
		bt.TradingDays = t.ExitIdx - t.EntryIdx
		if closeDate, err := p.DateOf(t.ExitIdx); err == nil {
			bt.CloseDate = util.FormatDate(closeDate)
		}
		result.ClosedTrades = append(result.ClosedTrades, bt)
	}
	return result
}

func roundSeconds(v float64) float64 {
	return math.Round(v*100) / 100
}

package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/domain/repository"
	"QuantBack/internal/indicators"
	applogger "QuantBack/pkg/logger"
	"QuantBack/pkg/util"
)

// TimeseriesUseCase serves OHLCV history for one symbol with optional
// indicator overlays. Indicator computation is best effort: a failing
// indicator is logged and omitted instead of failing the request.
type TimeseriesUseCase struct {
	market  repository.MarketStore
	metrics repository.Metrics
	log     *applogger.Logger
}

func NewTimeseriesUseCase(market repository.MarketStore, metrics repository.Metrics, log *applogger.Logger) *TimeseriesUseCase {
	return &TimeseriesUseCase{market: market, metrics: metrics, log: log}
}

func (uc *TimeseriesUseCase) Get(ctx context.Context, req *models.TimeseriesRequest) (*models.TimeseriesResponse, error) {
	var from, to time.Time
	if req.StartDate != "" {
		d, err := util.ParseDate(req.StartDate)
		if err != nil {
			return nil, fmt.Errorf("start_date: %w", err)
		}
		from = d
	}
	if req.EndDate != "" {
		d, err := util.ParseDate(req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("end_date: %w", err)
		}
		to = d
	}

	rows, err := uc.market.Prices(ctx, []string{req.Symbol}, from, to)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w for symbol %s", models.ErrNoData, req.Symbol)
	}

	n := len(rows)
	timestamps := make([]string, n)
	open := make(models.Series, n)
	high := make(models.Series, n)
	low := make(models.Series, n)
	close := make(models.Series, n)
	volume := make(models.Series, n)
	for i, r := range rows {
		timestamps[i] = util.FormatDate(r.Date)
		open[i], high[i], low[i], close[i], volume[i] = r.Open, r.High, r.Low, r.Close, r.Volume
	}

	resp := &models.TimeseriesResponse{
		Symbol:     req.Symbol,
		Interval:   req.Interval,
		Timestamps: timestamps,
		Timeseries: map[string]models.Series{
			"open":   open,
			"high":   high,
			"low":    low,
			"close":  close,
			"volume": volume,
		},
	}

	toks := splitIndicators(req.Indicators)
	if len(toks) == 0 {
		return resp, nil
	}
	resp.Indicators = make(map[string]any, len(toks))
	for _, tok := range toks {
		spec, err := parseIndicatorSpec(tok)
		if err != nil {
			uc.indicatorError(spec.name, err)
			continue
		}
		start := time.Now()
		uc.computeIndicator(resp.Indicators, spec, open, high, low, close, volume)
		uc.metrics.RecordIndicator(spec.name, time.Since(start).Seconds())
	}
	if len(resp.Indicators) == 0 {
		resp.Indicators = nil
	}
	return resp, nil
}

// indicatorSpec is one requested overlay: a name plus optional positional
// numeric parameters, e.g. "rsi:7" or "macd:12:26:9". Omitted positions
// fall back to each indicator's default.
type indicatorSpec struct {
	name   string
	params []float64
}

func (s indicatorSpec) fparam(i int, def float64) float64 {
	if i < len(s.params) {
		return s.params[i]
	}
	return def
}

func (s indicatorSpec) iparam(i, def int) int {
	if i < len(s.params) {
		return int(s.params[i])
	}
	return def
}

func parseIndicatorSpec(tok string) (indicatorSpec, error) {
	parts := strings.Split(tok, ":")
	spec := indicatorSpec{name: parts[0]}
	for _, p := range parts[1:] {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return spec, fmt.Errorf("parameter %q: %w", p, err)
		}
		spec.params = append(spec.params, v)
	}
	return spec, nil
}

func (uc *TimeseriesUseCase) computeIndicator(out map[string]any, spec indicatorSpec, open, high, low, close, volume []float64) {
	switch spec.name {
	case "rsi":
		out["rsi"] = models.Series(indicators.RSI(close, spec.iparam(0, 14)))
		out["rsi_5"] = models.Series(indicators.RSI(close, 5))
	case "macd":
		m := indicators.MACD(close, spec.iparam(0, 12), spec.iparam(1, 26), spec.iparam(2, 9))
		out["macd"] = map[string]models.Series{
			"macd":      models.Series(m.MACD),
			"signal":    models.Series(m.Signal),
			"histogram": models.Series(m.Histogram),
		}
	case "bbands":
		b := indicators.BollingerBands(close, spec.iparam(0, 20), spec.fparam(1, 2))
		out["bbands"] = map[string]models.Series{
			"upper":  models.Series(b.Upper),
			"middle": models.Series(b.Middle),
			"lower":  models.Series(b.Lower),
		}
	case "sma":
		out["sma"] = models.Series(indicators.SMA(close, spec.iparam(0, 20)))
	case "ema":
		out["ema"] = models.Series(indicators.EMA(close, spec.iparam(0, 20)))
	case "atr_trailing":
		atr := indicators.ATR(high, low, close, spec.iparam(0, 10))
		out["atr_trailing"] = models.Series(indicators.TrailingStop(close, atr, spec.fparam(1, 1.8)))
	case "vwap":
		window := spec.iparam(0, 200)
		highest, err := indicators.AnchoredVWAP(close, high, low, volume, window, indicators.AnchorHighest)
		if err != nil {
			uc.indicatorError(spec.name, err)
			return
		}
		lowest, err := indicators.AnchoredVWAP(close, high, low, volume, window, indicators.AnchorLowest)
		if err != nil {
			uc.indicatorError(spec.name, err)
			return
		}
		out["vwap_highest"] = models.Series(highest)
		out["vwap_lowest"] = models.Series(lowest)
	case "bvc":
		out["bvc"] = models.Series(indicators.HawkesBVC(close, volume, spec.iparam(0, 20), spec.fparam(1, 0.1)))
	case "stoch":
		st := indicators.Stochastic(high, low, close, spec.iparam(0, 14), spec.iparam(1, 3), spec.iparam(2, 3))
		out["stoch"] = map[string]models.Series{
			"slowk": models.Series(st.SlowK),
			"slowd": models.Series(st.SlowD),
		}
	case "kalman_zscore":
		out["kalman_zscore"] = models.Series(indicators.KalmanZScore(close, spec.iparam(0, 20)))
	case "yz_volatility":
		out["yz_volatility"] = models.Series(indicators.YangZhangVolatility(open, high, low, close, spec.iparam(0, 30), spec.iparam(1, 252)))
	default:
		uc.indicatorError(spec.name, fmt.Errorf("unknown indicator"))
	}
}

func (uc *TimeseriesUseCase) indicatorError(name string, err error) {
	uc.metrics.RecordError("indicator_" + name)
	uc.log.Warn("indicator skipped",
		applogger.String("indicator", name),
		applogger.Error(err),
	)
}

func splitIndicators(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package di

import (
	"fmt"

	"QuantBack/internal/domain/repository"
	"QuantBack/internal/handler/api"
	internalrepo "QuantBack/internal/repository"
	icache "QuantBack/internal/service/cache"
	"QuantBack/internal/services/backtest"
	"QuantBack/internal/services/mlmodels"
	"QuantBack/internal/usecase"
	pkgch "QuantBack/pkg/clickhouse"
	"QuantBack/pkg/config"
	xhttp "QuantBack/pkg/http"
	applogger "QuantBack/pkg/logger"
	"QuantBack/pkg/metrics"
	"QuantBack/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideMarketStore creates the ClickHouse OHLCV repository.
func ProvideMarketStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.MarketStore {
	store := internalrepo.NewCHMarketStore(chClient, cfg.ClickHouse.StocksTable)
	store.SetLogger(l)
	return store
}

// ProvideFeatureStore creates the ClickHouse feature repository.
func ProvideFeatureStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.FeatureStore {
	store := internalrepo.NewCHFeatureStore(chClient, cfg.ClickHouse.FeatureTable)
	store.SetLogger(l)
	return store
}

// ProvideEnsemble creates the gradient boosting model ensemble. Models
// load lazily on the first scored backtest, so a bad path surfaces there
// rather than at startup.
func ProvideEnsemble(cfg *config.Config, l *applogger.Logger) *mlmodels.Ensemble {
	return mlmodels.NewEnsemble(mlmodels.Config{
		XGBPath:      cfg.Models.XGBPath,
		LGBMPath:     cfg.Models.LGBMPath,
		CatBoostPath: cfg.Models.CatBoostPath,
	}, nil, l)
}

// ProvideBacktestService wires the backtest orchestrator.
func ProvideBacktestService(
	market repository.MarketStore,
	features repository.FeatureStore,
	ensemble *mlmodels.Ensemble,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *backtest.Service {
	return backtest.NewService(market, features, ensemble, m, l, cfg.Backtest.Watchlist)
}

// ProvideBacktestUseCase creates the backtest use case.
func ProvideBacktestUseCase(svc *backtest.Service, cfg *config.Config) *usecase.BacktestUseCase {
	return usecase.NewBacktestUseCase(svc, cfg.Backtest.Timeout)
}

// ProvideTimeseriesUseCase creates the timeseries use case.
func ProvideTimeseriesUseCase(market repository.MarketStore, m repository.Metrics, l *applogger.Logger) *usecase.TimeseriesUseCase {
	return usecase.NewTimeseriesUseCase(market, m, l)
}

// ProvideCache picks the response cache backend from config.
func ProvideCache(cfg *config.Config) icache.BytesCache {
	if cfg.Cache.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideHandler creates the Echo HTTP handler.
func ProvideHandler(
	l *applogger.Logger,
	bt *usecase.BacktestUseCase,
	ts *usecase.TimeseriesUseCase,
	cache icache.BytesCache,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewBacktestEchoHandler(l, bt, ts, cache, cfg.Cache.TTL)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, handler xhttp.Handler, chClient *pkgch.Client, l *applogger.Logger) *server.App {
	return server.New(cfg, handler, chClient, l)
}

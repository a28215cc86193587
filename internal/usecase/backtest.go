package usecase

import (
	"context"
	"fmt"
	"time"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/services/backtest"
	"QuantBack/pkg/util"
)

// BacktestUseCase validates and runs backtest requests against the
// orchestrator with a configured deadline.
type BacktestUseCase struct {
	svc     *backtest.Service
	timeout time.Duration
}

func NewBacktestUseCase(svc *backtest.Service, timeout time.Duration) *BacktestUseCase {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &BacktestUseCase{svc: svc, timeout: timeout}
}

func (uc *BacktestUseCase) Run(ctx context.Context, req *models.BacktestRequest) (*models.BacktestResult, error) {
	start, err := util.ParseDate(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	return uc.svc.Run(ctx, req.StrategyName, start, req.Symbols)
}

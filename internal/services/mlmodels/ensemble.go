package mlmodels

import (
	"fmt"
	"sync"

	"github.com/dmitryikh/leaves"

	"QuantBack/pkg/logger"
)

// Config points at the exported gradient boosting model files.
type Config struct {
	XGBPath      string
	LGBMPath     string
	CatBoostPath string
}

// Predictions carries per-trade win probabilities from the three models.
type Predictions struct {
	XGB      []float64
	LGBM     []float64
	CatBoost []float64
}

// Ensemble scores feature vectors with an XGBoost, a LightGBM and a
// CatBoost model. Models load lazily on first use and a load failure is
// sticky: every subsequent Score returns the same error.
type Ensemble struct {
	cfg    Config
	scaler Scaler
	log    *logger.Logger

	once sync.Once
	err  error
	xgb  *leaves.Ensemble
	lgbm *leaves.Ensemble
	cat  *leaves.Ensemble
}

// NewEnsemble builds an ensemble. A nil scaler defaults to BatchScaler.
func NewEnsemble(cfg Config, scaler Scaler, log *logger.Logger) *Ensemble {
	if scaler == nil {
		scaler = BatchScaler{}
	}
	return &Ensemble{cfg: cfg, scaler: scaler, log: log}
}

func (e *Ensemble) load() error {
	e.once.Do(func() {
		var err error
		if e.xgb, err = leaves.XGEnsembleFromFile(e.cfg.XGBPath, true); err != nil {
			e.err = fmt.Errorf("load xgboost model %s: %w", e.cfg.XGBPath, err)
			return
		}
		if e.lgbm, err = leaves.LGEnsembleFromFile(e.cfg.LGBMPath, true); err != nil {
			e.err = fmt.Errorf("load lightgbm model %s: %w", e.cfg.LGBMPath, err)
			return
		}
		if e.cat, err = leaves.CBEnsembleFromFile(e.cfg.CatBoostPath, true); err != nil {
			e.err = fmt.Errorf("load catboost model %s: %w", e.cfg.CatBoostPath, err)
			return
		}
		e.log.Info("model ensemble loaded",
			logger.Int("xgb_trees", e.xgb.NEstimators()),
			logger.Int("lgbm_trees", e.lgbm.NEstimators()),
			logger.Int("catboost_trees", e.cat.NEstimators()),
		)
	})
	return e.err
}

// Score standardizes X and scores every row with all three models.
func (e *Ensemble) Score(X [][]float64) (Predictions, error) {
	if err := e.load(); err != nil {
		return Predictions{}, err
	}
	if len(X) == 0 {
		return Predictions{}, nil
	}
	scaled := e.scaler.Transform(X)

	preds := Predictions{
		XGB:      make([]float64, len(scaled)),
		LGBM:     make([]float64, len(scaled)),
		CatBoost: make([]float64, len(scaled)),
	}
	for i, row := range scaled {
		preds.XGB[i] = e.xgb.PredictSingle(row, 0)
		preds.LGBM[i] = e.lgbm.PredictSingle(row, 0)
		preds.CatBoost[i] = e.cat.PredictSingle(row, 0)
	}
	return preds, nil
}

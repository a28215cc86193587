package models

// Requests and responses for the HTTP endpoints. Defined in domain for
// consistency and reuse.

type BacktestRequest struct {
	StrategyName string   `json:"strategy_name" validate:"required"`
	StartDate    string   `json:"start_date" validate:"required"`
	Symbols      []string `json:"symbols"`
}

type TimeseriesRequest struct {
	Symbol     string `query:"symbol" json:"symbol" validate:"required"`
	Interval   string `query:"interval" json:"interval" default:"1d" validate:"oneof=1d"`
	StartDate  string `query:"start_date" json:"start_date"`
	EndDate    string `query:"end_date" json:"end_date"`
	// Indicators is a comma separated overlay list; entries may carry
	// positional numeric parameters after colons, e.g. "rsi:7,macd:12:26:9".
	Indicators string `query:"indicators" json:"indicators"`
}

type TimeseriesResponse struct {
	Symbol     string            `json:"symbol"`
	Interval   string            `json:"interval"`
	Timestamps []string          `json:"timestamps"`
	Timeseries map[string]Series `json:"timeseries"`
	Indicators map[string]any    `json:"indicators,omitempty"`
}

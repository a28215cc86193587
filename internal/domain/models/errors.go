package models

import "errors"

// ErrNoData marks requests whose symbols or date range match no stored rows.
var ErrNoData = errors.New("no data found")

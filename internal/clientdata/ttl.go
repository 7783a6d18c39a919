package clientdata

import "time"

// TTL defaults, added to time.Now() when storing to calculate expires_at.
const (
	// TTLPriceSeries covers histories whose window ends today; new closes arrive daily.
	TTLPriceSeries = 12 * time.Hour

	// TTLHistoricalSeries covers windows that ended before today and no longer change.
	TTLHistoricalSeries = 30 * 24 * time.Hour
)

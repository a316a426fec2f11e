package loadgen

import "time"

// Defaults applied by Config.withDefaults.
const (
	DefaultPollInterval = 50 * time.Millisecond
	DefaultMinPurity    = 0.95
	DefaultSpread       = 0.05
)

// Layout of generated blob centers.
const (
	gridColumns  = 6
	latOrigin    = -50.0
	lngOrigin    = -150.0
	latStep      = 15.0
	lngStep      = 45.0
	centerJitter = 2.0
)

// PercentageMultiplier turns fractions into percentages in reports.
const PercentageMultiplier = 100

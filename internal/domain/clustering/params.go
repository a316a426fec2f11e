package clustering

import (
	"fmt"
	"strings"
)

// Strategy selects how labels are produced.
type Strategy string

const (
	// StrategyMixture fits a Gaussian mixture and labels by maximum responsibility.
	StrategyMixture Strategy = "mixture"
	// StrategyBeatCode labels each record by the first-seen index of its group value.
	StrategyBeatCode Strategy = "beatcode"
)

// ParseStrategy maps a user-supplied name to a Strategy; empty selects mixture.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyMixture:
		return StrategyMixture, nil
	case StrategyBeatCode, "beat_code":
		return StrategyBeatCode, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidParams, s)
	}
}

// Params tunes a single run. The zero value derives k from the group column
// and fits a mixture.
type Params struct {
	// Clusters forces k when positive; it is still clamped to the record count.
	Clusters int `json:"clusters,omitempty"`
	// MinPoints and MaxPoints bound the points per cluster. They apply only
	// when both are set.
	MinPoints int      `json:"min_points,omitempty"`
	MaxPoints int      `json:"max_points,omitempty"`
	Strategy  Strategy `json:"strategy,omitempty"`
}

// Validate reports parameter combinations that cannot be honored.
func (p Params) Validate() error {
	if p.Clusters < 0 {
		return fmt.Errorf("%w: clusters must not be negative", ErrInvalidParams)
	}
	if p.budgeted() && (p.MinPoints < 0 || p.MaxPoints < 0) {
		return fmt.Errorf("%w: min_points and max_points must be positive", ErrInvalidParams)
	}
	if _, err := ParseStrategy(string(p.Strategy)); err != nil {
		return err
	}
	return nil
}

// K resolves the component count for g distinct groups over n records.
func (p Params) K(g, n int) int {
	switch {
	case p.Clusters > 0:
		return clamp(p.Clusters, 1, n)
	case p.budgeted():
		return SelectKWithBudget(g, n, p.MinPoints, p.MaxPoints)
	default:
		return SelectK(g, n)
	}
}

func (p Params) budgeted() bool { return p.MinPoints != 0 && p.MaxPoints != 0 }

package repair

import (
	"fmt"
	"strings"
)

// Strategy selects how candidates are evaluated.
type Strategy uint8

const (
	// StrategyBaseline runs every candidate program from scratch in index order.
	StrategyBaseline Strategy = iota
	// StrategyIncremental rewinds a single machine to each divergence point.
	StrategyIncremental
	// StrategyParallel evaluates candidate copies on a bounded worker pool.
	StrategyParallel
)

func (s Strategy) String() string {
	switch s {
	case StrategyBaseline:
		return "baseline"
	case StrategyIncremental:
		return "incremental"
	case StrategyParallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a flag or manifest value to a Strategy.
// The empty string selects the baseline.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "baseline":
		return StrategyBaseline, nil
	case "incremental":
		return StrategyIncremental, nil
	case "parallel":
		return StrategyParallel, nil
	default:
		return StrategyBaseline, fmt.Errorf("invalid strategy %q (expected: baseline|incremental|parallel)", s)
	}
}

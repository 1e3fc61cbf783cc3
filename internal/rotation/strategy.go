package rotation

import "fmt"

// Strategy selects how the next credential is chosen after a throttle.
type Strategy string

const (
	// StrategyRoundRobin cycles through credentials in stable add order,
	// starting just after the active one.
	StrategyRoundRobin Strategy = "round-robin"
	// StrategyLeastUsed picks the candidate with the smallest request
	// count, breaking ties by add order.
	StrategyLeastUsed Strategy = "least-used"
	// StrategyManual never rotates automatically; the user switches.
	StrategyManual Strategy = "manual"
)

// ParseStrategy validates a strategy string from config or a flag.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyRoundRobin, StrategyLeastUsed, StrategyManual:
		return Strategy(s), nil
	case "":
		return StrategyRoundRobin, nil
	}
	return "", fmt.Errorf("unknown rotation strategy %q (want round-robin, least-used, or manual)", s)
}

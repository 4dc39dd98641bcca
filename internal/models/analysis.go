package models

// PayoffPoint is one sampled point of the aggregate payoff curve at
// expiration. PnL is in dollars for the whole strategy.
type PayoffPoint struct {
	Price float64 `json:"price"`
	PnL   float64 `json:"pnl"`
}

// Bound is a profit or loss extreme that may be unbounded. Value is
// meaningless when Unbounded is set.
type Bound struct {
	Value     float64 `json:"value"`
	Unbounded bool    `json:"unbounded,omitempty"`
}

// Bounded wraps a finite bound value.
func Bounded(v float64) Bound { return Bound{Value: v} }

// Unbounded marks a bound with no finite extreme.
func Unbounded() Bound { return Bound{Unbounded: true} }

// Greeks holds the aggregate, quantity-scaled sensitivities of a strategy.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// Add accumulates another set of greeks scaled by mult.
func (g *Greeks) Add(other Greeks, mult float64) {
	g.Delta += other.Delta * mult
	g.Gamma += other.Gamma * mult
	g.Theta += other.Theta * mult
	g.Vega += other.Vega * mult
}

// StrategyAnalysis is the immutable result of evaluating a strategy at
// expiration: the payoff curve, its extremes, the breakeven prices, the
// probability of profit and the aggregate greeks.
type StrategyAnalysis struct {
	Legs                Legs          `json:"legs"`
	Curve               []PayoffPoint `json:"payoff_diagram"`
	MaxProfit           Bound         `json:"max_profit"`
	MaxLoss             Bound         `json:"max_loss"`
	Breakevens          []float64     `json:"breakevens"`
	ProbabilityOfProfit float64       `json:"probability_of_profit"`
	CostBasis           float64       `json:"cost_basis"`
	Greeks              Greeks        `json:"greeks"`
}

// Legs is an ordered leg collection, aliased for JSON ergonomics.
type Legs []Leg

// ScanCombo is one ranked candidate produced by a combination scan.
type ScanCombo struct {
	Legs                Legs      `json:"legs"`
	MaxProfit           Bound     `json:"max_profit"`
	MaxLoss             Bound     `json:"max_loss"`
	Breakevens          []float64 `json:"breakevens"`
	ProbabilityOfProfit float64   `json:"probability_of_profit"`
	CostBasis           float64   `json:"cost_basis"`
	RiskReward          float64   `json:"risk_reward"`
	RiskRewardCapped    bool      `json:"risk_reward_capped,omitempty"`
	Score               float64   `json:"score"`
	Optimal             bool      `json:"optimal"`
}

// ScanResponse is the outcome of a combination scan: the ranked shortlist
// plus the exact number of candidates that were evaluated.
type ScanResponse struct {
	Combinations []ScanCombo `json:"combinations"`
	Total        int         `json:"total"`
}

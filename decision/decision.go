package decision

import (
	"math"
	"strings"

	"issue-guardian/classifier"
	"issue-guardian/rules"
)

// Decision is the final moderation outcome for one request.
// Deterministic given identical rule and aggregator inputs.
type Decision struct {
	Tier       classifier.Tier `json:"tier"`
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
	Score      float64         `json:"score"`
	Flags      []string        `json:"flags,omitempty"`
}

// FusionStrategy reduces the pool of signal scores to one aggregate score.
type FusionStrategy interface {
	Name() string
	Fuse(signals []float64) float64
}

// MaxSignals is the production policy: the strongest signal wins.
type MaxSignals struct{}

func (MaxSignals) Name() string { return "max_signals" }

func (MaxSignals) Fuse(signals []float64) float64 {
	max := 0.0
	for _, s := range signals {
		if s > max {
			max = s
		}
	}
	return max
}

// WeightedLinear is the legacy policy kept for comparison runs.
// Not wired into the engine; averaging dilutes a single strong signal.
type WeightedLinear struct {
	Weights []float64
}

func (WeightedLinear) Name() string { return "weighted_linear" }

func (w WeightedLinear) Fuse(signals []float64) float64 {
	if len(signals) == 0 {
		return 0
	}

	sum := 0.0
	weightSum := 0.0
	for i, s := range signals {
		weight := 1.0
		if i < len(w.Weights) {
			weight = w.Weights[i]
		}
		sum += s * weight
		weightSum += weight
	}
	if weightSum == 0 {
		return 0
	}

	fused := sum / weightSum
	return math.Min(math.Max(fused, 0), 1)
}

// Engine fuses the rule stage and the AI stage into a final Decision.
type Engine struct {
	fusion FusionStrategy
}

func NewEngine() *Engine {
	return &Engine{fusion: MaxSignals{}}
}

func NewEngineWithStrategy(fusion FusionStrategy) *Engine {
	return &Engine{fusion: fusion}
}

// Decide applies rule precedence, then falls through to the fused AI score.
// A rule REJECT or ESCALATE short-circuits without consulting the AI signal.
func (e *Engine) Decide(ruleResult rules.Result, aiResult classifier.ClassificationResult) Decision {
	switch ruleResult.Decision {
	case rules.DecisionReject:
		return Decision{
			Tier:       classifier.TierRed,
			Confidence: 1.0,
			Reason:     strings.Join(ruleResult.Flags, ", "),
			Score:      ruleResult.Score,
			Flags:      ruleResult.Flags,
		}
	case rules.DecisionEscalate:
		return Decision{
			Tier:       classifier.TierYellow,
			Confidence: 0.7,
			Reason:     "Requires human review",
			Score:      ruleResult.Score,
			Flags:      ruleResult.Flags,
		}
	}

	score := aiResult.Score
	if len(aiResult.Signals) > 0 {
		score = e.fusion.Fuse(aiResult.Signals)
	}

	return Decision{
		Tier:       classifier.ScoreToTier(score),
		Confidence: deriveConfidence(score),
		Reason:     aiResult.Reason,
		Score:      score,
	}
}

// deriveConfidence maps a score to a confidence: certain at either extreme,
// weakest around the 0.5 midpoint.
func deriveConfidence(score float64) float64 {
	return math.Max(score, 1-score)
}

package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"issue-guardian/classifier"
	"issue-guardian/rules"
)

func TestDecide_RuleRejectShortCircuits(t *testing.T) {
	ruleResult := rules.Result{
		Decision: rules.DecisionReject,
		Score:    1.0,
		Flags:    []string{"PHONE_NUMBER"},
	}
	// AI 신호는 무시되어야 한다.
	aiResult := classifier.ClassificationResult{Score: 0.0, Signals: []float64{0.0}, Reason: "Content passed all checks"}

	d := NewEngine().Decide(ruleResult, aiResult)

	assert.Equal(t, classifier.TierRed, d.Tier)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Equal(t, "PHONE_NUMBER", d.Reason)
	assert.Equal(t, 1.0, d.Score)
}

func TestDecide_RuleEscalateFixedConfidence(t *testing.T) {
	ruleResult := rules.Result{
		Decision: rules.DecisionEscalate,
		Score:    0.6,
		Flags:    []string{"fuck", "shit"},
	}
	aiResult := classifier.ClassificationResult{Score: 0.95, Signals: []float64{0.95}}

	d := NewEngine().Decide(ruleResult, aiResult)

	assert.Equal(t, classifier.TierYellow, d.Tier)
	assert.Equal(t, 0.7, d.Confidence)
	assert.Equal(t, "Requires human review", d.Reason)
}

func TestDecide_FallsThroughToAIScore(t *testing.T) {
	ruleResult := rules.Result{Decision: rules.DecisionApprove}

	cases := []struct {
		name  string
		score float64
		tier  classifier.Tier
	}{
		{"깨끗한 콘텐츠는 GREEN", 0.0, classifier.TierGreen},
		{"중간 점수는 YELLOW", 0.5, classifier.TierYellow},
		{"높은 점수는 RED", 0.9, classifier.TierRed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			aiResult := classifier.ClassificationResult{
				Score:   tc.score,
				Signals: []float64{tc.score},
				Reason:  "reason",
			}
			d := NewEngine().Decide(ruleResult, aiResult)

			assert.Equal(t, tc.tier, d.Tier)
			assert.Equal(t, tc.score, d.Score)
			assert.Equal(t, "reason", d.Reason)
		})
	}
}

func TestDeriveConfidence(t *testing.T) {
	assert.Equal(t, 1.0, deriveConfidence(0.0))
	assert.Equal(t, 1.0, deriveConfidence(1.0))
	assert.Equal(t, 0.5, deriveConfidence(0.5))
	assert.InDelta(t, 0.9, deriveConfidence(0.9), 1e-9)
}

func TestMaxSignals(t *testing.T) {
	assert.Equal(t, 0.9, MaxSignals{}.Fuse([]float64{0.1, 0.9, 0.5}))
	assert.Zero(t, MaxSignals{}.Fuse(nil))
}

func TestWeightedLinear(t *testing.T) {
	assert.InDelta(t, 0.5, WeightedLinear{}.Fuse([]float64{0.1, 0.9}), 1e-9)
	assert.InDelta(t, 0.7, WeightedLinear{Weights: []float64{1, 3}}.Fuse([]float64{0.1, 0.9}), 1e-9)
	assert.Zero(t, WeightedLinear{}.Fuse(nil))
}

func TestDecide_StrategySelection(t *testing.T) {
	ruleResult := rules.Result{Decision: rules.DecisionApprove}
	aiResult := classifier.ClassificationResult{Score: 0.9, Signals: []float64{0.1, 0.9}}

	// 운영 정책은 최댓값, 레거시 정책은 평균으로 깎인다.
	maxDecision := NewEngineWithStrategy(MaxSignals{}).Decide(ruleResult, aiResult)
	linDecision := NewEngineWithStrategy(WeightedLinear{}).Decide(ruleResult, aiResult)

	assert.Equal(t, classifier.TierRed, maxDecision.Tier)
	assert.Equal(t, classifier.TierYellow, linDecision.Tier)
}

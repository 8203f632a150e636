package engine

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyBillingDispute(t *testing.T) {
	e := New(DefaultRules())
	res := e.Classify("I was charged twice for my invoice")

	assert.Equal(t, CategoryBilling, res.Category)
	assert.Contains(t, res.Reasons, ReasonPayment)
	assert.Equal(t, PriorityP1, res.Priority)
	assert.True(t, res.Escalate)
}

func TestClassifyTechnicalNoEscalation(t *testing.T) {
	e := New(DefaultRules())
	res := e.Classify("login is down, cannot access account")

	assert.Equal(t, CategoryTechnical, res.Category)
	assert.Equal(t, PriorityP2, res.Priority)
	assert.Empty(t, res.Reasons)
	assert.False(t, res.Escalate)
}

func TestHardenedCatchesChurnNaiveMisses(t *testing.T) {
	text := "We might switch to a competitor if this continues"

	hardened := New(DefaultRules()).Classify(text)
	require.Contains(t, hardened.Reasons, ReasonChurn)
	assert.Equal(t, PriorityP1, hardened.Priority)
	assert.True(t, hardened.Escalate)

	naive := NewNaive(DefaultRules()).Classify(text)
	assert.NotContains(t, naive.Reasons, ReasonChurn)
	assert.False(t, naive.Escalate)
}

func TestClassifyEmptyText(t *testing.T) {
	e := New(DefaultRules())

	for _, text := range []string{"", "   ", "\n\t"} {
		res := e.Classify(text)
		assert.Equal(t, CategoryGeneral, res.Category)
		assert.Empty(t, res.Reasons)
		assert.Equal(t, PriorityP3, res.Priority)
		assert.InDelta(t, confidenceBaseline, res.Confidence, 1e-9)
		assert.False(t, res.Escalate)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	e := New(DefaultRules())
	texts := []string{
		"I was charged twice for my invoice",
		"the app is down and operations are blocked, need a manager",
		"lol the dashboard is acting up but mostly okay",
		"love the product but my lawyer sent a gdpr notice",
		"",
	}
	for _, text := range texts {
		first := e.Classify(text)
		second := e.Classify(text)
		assert.Equal(t, first, second, "classify must be deterministic for %q", text)
	}
}

func TestReasonsSortedAndDeduplicated(t *testing.T) {
	e := New(DefaultRules())
	// Hits security, legal, hostile, payment, and churn families at once.
	res := e.Classify("unauthorized access, hacked account, refund now or my lawyer calls, switching to a competitor, this is unacceptable")

	require.NotEmpty(t, res.Reasons)
	assert.True(t, sort.StringsAreSorted(res.Reasons), "reasons must be sorted: %v", res.Reasons)
	seen := make(map[string]bool)
	for _, r := range res.Reasons {
		assert.False(t, seen[r], "duplicate reason %q", r)
		seen[r] = true
	}
}

func TestPriorityTotality(t *testing.T) {
	families := []string{
		ReasonSecurity, ReasonPayment, ReasonLegal, ReasonHuman,
		ReasonCritical, ReasonHostile, ReasonPricing, ReasonChurn,
	}
	categories := []Category{CategoryBilling, CategoryTechnical, CategoryGeneral}

	// Every (category, reason subset) pair must map to exactly one tier.
	for mask := 0; mask < 1<<len(families); mask++ {
		var reasons []string
		for i, f := range families {
			if mask&(1<<i) != 0 {
				reasons = append(reasons, f)
			}
		}
		for _, cat := range categories {
			p := decidePriority(cat, reasons)
			switch p {
			case PriorityP1, PriorityP2, PriorityP3:
			default:
				t.Fatalf("unmapped priority %q for category %q reasons %v", p, cat, reasons)
			}
		}
	}
}

func TestPriorityTable(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		reasons  []string
		want     Priority
	}{
		{"security is P1", CategoryGeneral, []string{ReasonSecurity}, PriorityP1},
		{"critical is P1", CategoryBilling, []string{ReasonCritical}, PriorityP1},
		{"legal is P1", CategoryGeneral, []string{ReasonLegal}, PriorityP1},
		{"payment is P1", CategoryBilling, []string{ReasonPayment}, PriorityP1},
		{"churn is P1", CategoryGeneral, []string{ReasonChurn}, PriorityP1},
		{"technical without P1 reason is P2", CategoryTechnical, []string{ReasonHuman}, PriorityP2},
		{"technical with no reasons is P2", CategoryTechnical, nil, PriorityP2},
		{"everything else is P3", CategoryGeneral, []string{ReasonHostile}, PriorityP3},
		{"no reasons general is P3", CategoryGeneral, nil, PriorityP3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decidePriority(tt.category, tt.reasons))
		})
	}
}

func TestBillingBeatsTechnicalTieBreak(t *testing.T) {
	e := New(DefaultRules())
	// Matches both billing ("invoice") and technical ("error") tables.
	res := e.Classify("getting an error on my invoice page")
	assert.Equal(t, CategoryBilling, res.Category)
}

func TestConfidencePenalties(t *testing.T) {
	e := New(DefaultRules())

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"clean technical", "the upload endpoint returns 500", 0.92},
		{"ambiguous slang", "the dashboard is acting up lol", 0.72},
		{"conflicting tone", "love the product but this is really frustrating", 0.74},
		{"unclassified problem hint", "there is a weird problem with my setup", 0.80},
		{"security penalty", "we found a suspicious login on the account", 0.87},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Classify(tt.text)
			assert.InDelta(t, tt.want, res.Confidence, 1e-9)
		})
	}
}

func TestConfidenceBounds(t *testing.T) {
	e := New(DefaultRules())
	// Stacks every penalty family in one message.
	res := e.Classify("lol thing is we love you but lawyer says terminate, switching to a competitor, hacked and gdpr issue")
	assert.GreaterOrEqual(t, res.Confidence, confidenceFloor)
	assert.LessOrEqual(t, res.Confidence, confidenceCeiling)
}

func TestConfidenceIsAdvisoryOnly(t *testing.T) {
	text := "lol the thing is acting up, vibes are bad, switching to a competitor"
	hardened := New(DefaultRules()).Classify(text)
	require.Contains(t, hardened.Reasons, ReasonChurn)

	// A penalized confidence never alters the decision fields.
	assert.True(t, hardened.Escalate)
	assert.Equal(t, PriorityP1, hardened.Priority)
	assert.Less(t, hardened.Confidence, confidenceBaseline)
}

func TestDecideMustEscalateOverride(t *testing.T) {
	e := New(DefaultRules())
	res, err := e.Decide(context.Background(), DecisionInput{
		Text:         "what is the weather like",
		MustEscalate: true,
	})
	require.NoError(t, err)

	assert.True(t, res.Escalate)
	assert.Empty(t, res.Reasons)
	assert.Equal(t, CategoryGeneral, res.Category)
	assert.Equal(t, PriorityP3, res.Priority)
}

func TestNaiveFixedConfidence(t *testing.T) {
	e := NewNaive(DefaultRules())
	assert.InDelta(t, naiveConfidence, e.Classify("lol acting up").Confidence, 1e-9)
	assert.InDelta(t, naiveConfidence, e.Classify("").Confidence, 1e-9)
}

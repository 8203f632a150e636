// Package engine implements the deterministic classification and
// escalation rules for inbound support messages. Decisions are pure
// functions of the message text and the rule tables, so the same input
// always produces the same auditable output.
package engine

import (
	"math"
	"sort"
	"strings"
)

// Category is the issue category assigned to a message.
type Category string

const (
	CategoryBilling   Category = "Billing"
	CategoryTechnical Category = "Technical Issue"
	CategoryGeneral   Category = "General Inquiry"
)

// Priority is the urgency tier assigned to a decision.
type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// Named escalation reason families. The strings are part of the audit
// contract: they appear in tickets, escalation events, and logs.
const (
	ReasonSecurity = "Security incident"
	ReasonPayment  = "Payment dispute/refund"
	ReasonLegal    = "Legal/compliance request"
	ReasonHuman    = "Customer requested human/manager"
	ReasonCritical = "Critical workflow blocked"
	ReasonHostile  = "Hostile/repeated frustration"
	ReasonPricing  = "Out-of-scope pricing negotiation"
	ReasonChurn    = "Churn/competitor risk"
)

// Confidence scoring bounds for the hardened variant. Confidence is
// advisory metadata: it flags low-trust results for review but never
// changes category, escalation, or priority.
const (
	confidenceBaseline = 0.92
	confidenceFloor    = 0.2
	confidenceCeiling  = 0.99

	// The naive variant reports a fixed confidence since it has no
	// penalty tables to apply.
	naiveConfidence = 0.95
)

// Result is the outcome of classifying one message.
type Result struct {
	Category   Category `json:"category"`
	Escalate   bool     `json:"escalate"`
	Reasons    []string `json:"reasons"`
	Priority   Priority `json:"priority"`
	Confidence float64  `json:"confidence"`
}

// Engine is a deterministic rule evaluator. The hardened variant adds the
// churn/competitor reason family and confidence penalty rules on top of
// the naive baseline.
type Engine struct {
	rules    RuleSet
	hardened bool
}

// New returns the hardened engine.
func New(rules RuleSet) *Engine {
	return &Engine{rules: rules, hardened: true}
}

// NewNaive returns the baseline engine without churn detection or
// confidence penalties. Kept as the regression reference the hardened
// variant is evaluated against.
func NewNaive(rules RuleSet) *Engine {
	return &Engine{rules: rules, hardened: false}
}

// Classify evaluates the rule tables against text and returns a decision.
// It is side-effect-free: empty or whitespace-only text yields General
// Inquiry, no reasons, P3.
func (e *Engine) Classify(text string) Result {
	lower := strings.ToLower(text)

	category := e.classifyCategory(lower)
	reasons := e.escalationReasons(lower)
	priority := decidePriority(category, reasons)

	confidence := naiveConfidence
	if e.hardened {
		confidence = e.confidenceScore(lower, category, reasons)
	}

	return Result{
		Category:   category,
		Escalate:   len(reasons) > 0,
		Reasons:    reasons,
		Priority:   priority,
		Confidence: confidence,
	}
}

// classifyCategory applies the category tables in fixed order. A message
// matching both billing and technical keywords is Billing: the tie-break
// is deliberate and documented, not incidental evaluation order.
func (e *Engine) classifyCategory(lower string) Category {
	if hasAny(lower, e.rules.BillingKeywords) {
		return CategoryBilling
	}
	if hasAny(lower, e.rules.TechKeywords) || hasAny(lower, e.rules.SecurityKeywords) {
		return CategoryTechnical
	}
	return CategoryGeneral
}

// escalationReasons evaluates every trigger family independently and
// returns the sorted, deduplicated reason list, so the output ordering
// never depends on evaluation order.
func (e *Engine) escalationReasons(lower string) []string {
	var reasons []string
	if hasAny(lower, e.rules.SecurityKeywords) {
		reasons = append(reasons, ReasonSecurity)
	}
	if hasAny(lower, e.rules.PaymentDisputePhrases) {
		reasons = append(reasons, ReasonPayment)
	}
	if hasAny(lower, e.rules.LegalKeywords) {
		reasons = append(reasons, ReasonLegal)
	}
	if hasAny(lower, e.rules.HumanKeywords) {
		reasons = append(reasons, ReasonHuman)
	}
	if hasAny(lower, e.rules.CriticalKeywords) {
		reasons = append(reasons, ReasonCritical)
	}
	if hasAny(lower, e.rules.HostileKeywords) {
		reasons = append(reasons, ReasonHostile)
	}
	if hasAny(lower, e.rules.PricingPhrases) {
		reasons = append(reasons, ReasonPricing)
	}
	if e.hardened && hasAny(lower, e.rules.ChurnKeywords) {
		reasons = append(reasons, ReasonChurn)
	}
	return normalizeReasons(reasons)
}

// decidePriority maps (category, reason set) to exactly one tier,
// most-severe-first. The function is total: every reachable pair lands
// in one of the three cases.
func decidePriority(category Category, reasons []string) Priority {
	if containsAny(reasons, ReasonSecurity, ReasonCritical, ReasonLegal) {
		return PriorityP1
	}
	if containsAny(reasons, ReasonPayment, ReasonChurn) {
		return PriorityP1
	}
	if category == CategoryTechnical {
		return PriorityP2
	}
	return PriorityP3
}

// confidenceScore starts at the baseline and applies independent penalty
// rules, then clamps to [0.2, 0.99] and rounds to two decimals.
func (e *Engine) confidenceScore(lower string, category Category, reasons []string) float64 {
	score := confidenceBaseline
	if hasAny(lower, e.rules.AmbiguousPhrases) {
		score -= 0.20
	}
	if hasAny(lower, e.rules.PositiveTone) && hasAny(lower, e.rules.NegativeTone) {
		score -= 0.18
	}
	if category == CategoryGeneral && len(reasons) == 0 && hasAny(lower, e.rules.ProblemHints) {
		score -= 0.12
	}
	if containsAny(reasons, ReasonChurn) {
		score -= 0.08
	}
	if containsAny(reasons, ReasonSecurity, ReasonLegal) {
		score -= 0.05
	}
	score = math.Max(confidenceFloor, math.Min(confidenceCeiling, score))
	return math.Round(score*100) / 100
}

// normalizeReasons sorts and deduplicates a reason list in place.
func normalizeReasons(reasons []string) []string {
	if len(reasons) == 0 {
		return reasons
	}
	sort.Strings(reasons)
	out := reasons[:1]
	for _, r := range reasons[1:] {
		if r != out[len(out)-1] {
			out = append(out, r)
		}
	}
	return out
}

func hasAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func containsAny(list []string, candidates ...string) bool {
	for _, c := range candidates {
		for _, item := range list {
			if item == c {
				return true
			}
		}
	}
	return false
}

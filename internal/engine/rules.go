package engine

import (
	"os"

	"gopkg.in/yaml.v3"
)

// RuleSet holds the versioned keyword tables the engine evaluates. The
// tables are data, not control flow: they can be audited, diffed, and
// replaced (eventually by a learned model) without touching the evaluator.
type RuleSet struct {
	Version string `yaml:"version"`

	// Category tables, evaluated in fixed priority order: billing first,
	// then technical-or-security, else General Inquiry.
	BillingKeywords  []string `yaml:"billing_keywords"`
	TechKeywords     []string `yaml:"tech_keywords"`
	SecurityKeywords []string `yaml:"security_keywords"`

	// Escalation reason families.
	LegalKeywords         []string `yaml:"legal_keywords"`
	CriticalKeywords      []string `yaml:"critical_keywords"`
	HumanKeywords         []string `yaml:"human_keywords"`
	HostileKeywords       []string `yaml:"hostile_keywords"`
	PaymentDisputePhrases []string `yaml:"payment_dispute_phrases"`
	PricingPhrases        []string `yaml:"pricing_phrases"`

	// Hardened-variant tables: signals mostly missed by keyword-only
	// baselines.
	ChurnKeywords    []string `yaml:"churn_keywords"`
	AmbiguousPhrases []string `yaml:"ambiguous_phrases"`
	PositiveTone     []string `yaml:"positive_tone"`
	NegativeTone     []string `yaml:"negative_tone"`
	ProblemHints     []string `yaml:"problem_hints"`
}

// DefaultRules returns the compiled-in rule tables.
func DefaultRules() RuleSet {
	return RuleSet{
		Version: "v2",

		BillingKeywords: []string{
			"invoice", "charged", "charge", "refund", "billing",
			"discount", "payment", "vat", "line item",
		},
		TechKeywords: []string{
			"error", "bug", "failing", "failed", "cannot", "can not",
			"cant", "not working", "down", "outage", "locked", "access",
			"latency", "500", "search", "login", "upload", "webhook",
			"freeze",
		},
		SecurityKeywords: []string{
			"security", "unauthorized", "hacked", "suspicious login",
			"data breach", "signature validation", "signatures look weak",
		},

		LegalKeywords: []string{
			"legal", "gdpr", "compliance", "dpa", "retention", "lawyer",
			"notice",
		},
		CriticalKeywords: []string{
			"app down", "outage", "cannot operate", "business critical",
			"operations are blocked", "cannot respond to customers",
			"account locked",
		},
		HumanKeywords: []string{"manager", "human agent"},
		HostileKeywords: []string{
			"unacceptable", "disappointed", "ridiculous", "useless",
			"ruined", "angry", "fix now", "super frustrating",
			"extremely frustrating", "really frustrating", "third time",
			"no one solved", "sue",
		},
		PaymentDisputePhrases: []string{
			"charged twice", "duplicate payment", "refund", "chargeback",
			"payment dispute", "refund pending",
		},
		PricingPhrases: []string{
			"discount", "pricing negotiation", "annual discount",
			"custom contract",
		},

		ChurnKeywords: []string{
			"competitor", "switching", "move spend", "terminate",
			"migrate", "another vendor", "pilot", "pause rollout",
		},
		AmbiguousPhrases: []string{
			"acting up", "vibes are bad", "scene off", "lol",
			"mostly okay", "side note", "thing is",
		},
		PositiveTone: []string{"love", "great product", "all good", "thanks", "kind"},
		NegativeTone: []string{
			"lawyer", "sue", "terminate", "ridiculous", "unacceptable",
			"frustrating", "competitor",
		},
		ProblemHints: []string{"issue", "problem", "off"},
	}
}

// LoadRules reads rule tables from a YAML file, starting from the defaults
// so a partial file only overrides the sections it names. An empty path
// returns the defaults unchanged.
func LoadRules(path string) (RuleSet, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, err
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, err
	}
	return rules, nil
}

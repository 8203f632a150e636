package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRulesEmptyPathReturnsDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRulesPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := "version: custom\nbilling_keywords: [\"proforma\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, "custom", rules.Version)
	assert.Equal(t, []string{"proforma"}, rules.BillingKeywords)
	// Sections the file does not name keep their defaults.
	assert.Equal(t, DefaultRules().TechKeywords, rules.TechKeywords)

	res := New(rules).Classify("please resend the proforma")
	assert.Equal(t, CategoryBilling, res.Category)
}

func TestLoadRulesMissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

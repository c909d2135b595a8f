// Package rules ships the default bilingual relationship rule table and reads
// replacement tables from YAML.
package rules

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/camden-git/vanshavalibackend/kinship"
	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

type ruleFile struct {
	Rules []kinship.Rule `yaml:"rules"`
}

// Default returns a fresh copy of the embedded rule table.
func Default() ([]kinship.Rule, error) {
	return Parse(defaultRules)
}

// Parse decodes a YAML rule file and validates every rule in it.
func Parse(data []byte) ([]kinship.Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode rule file: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("rule file contains no rules")
	}
	if _, err := kinship.NewRuleTable(f.Rules); err != nil {
		return nil, fmt.Errorf("invalid rule file: %w", err)
	}
	return f.Rules, nil
}

// LoadFile reads rules from path, or the embedded table when path is empty.
func LoadFile(path string) ([]kinship.Rule, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	return Parse(data)
}

// Marshal encodes rules in the same layout Parse reads.
func Marshal(rs []kinship.Rule) ([]byte, error) {
	return yaml.Marshal(ruleFile{Rules: rs})
}

package approval

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/ethansammiq/deal-desk-sub004/internal/model"
)

//go:embed rules.yaml
var rulesYAML []byte

// Rules returns the static approval-rule catalog: one entry per approver
// level with title, description, and estimated turnaround.
func Rules() ([]model.ApprovalRule, error) {
	var doc struct {
		Rules []model.ApprovalRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(rulesYAML, &doc); err != nil {
		return nil, eris.Wrap(err, "approval: parse rules catalog")
	}
	return doc.Rules, nil
}

// RuleFor returns the catalog entry for the given level, or nil if the
// catalog has no entry for it.
func RuleFor(level model.ApproverLevel) (*model.ApprovalRule, error) {
	rules, err := Rules()
	if err != nil {
		return nil, err
	}
	for i := range rules {
		if rules[i].Level == level {
			return &rules[i], nil
		}
	}
	return nil, nil
}

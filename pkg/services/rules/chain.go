package rules

import (
	"github.com/redhat-cop/rhdp-monitoring-scripts/pkg/models/domain"
)

// Condition selects a chain branch.
type Condition func(rec domain.Record, ctx Context) bool

func Has(path ...string) Condition {
	return func(rec domain.Record, _ Context) bool {
		return rec.HasPath(path...)
	}
}

func Missing(path ...string) Condition {
	return func(rec domain.Record, _ Context) bool {
		return !rec.HasPath(path...)
	}
}

func Always() Condition {
	return func(domain.Record, Context) bool { return true }
}

func And(conds ...Condition) Condition {
	return func(rec domain.Record, ctx Context) bool {
		for _, c := range conds {
			if !c(rec, ctx) {
				return false
			}
		}
		return true
	}
}

func Not(cond Condition) Condition {
	return func(rec domain.Record, ctx Context) bool {
		return !cond(rec, ctx)
	}
}

// Branch pairs a condition with the rule evaluated when it matches.
type Branch struct {
	cond Condition
	rule Rule
}

func When(cond Condition, rule Rule) Branch {
	return Branch{cond: cond, rule: rule}
}

func Otherwise(rule Rule) Branch {
	return Branch{cond: Always(), rule: rule}
}

// ChainRule evaluates only the first branch whose condition matches.
type ChainRule struct {
	name     string
	branches []Branch
}

func Chain(name string, branches ...Branch) *ChainRule {
	return &ChainRule{name: name, branches: branches}
}

func (c *ChainRule) Name() string { return c.name }

func (c *ChainRule) Evaluate(rec domain.Record, ctx Context) (domain.Finding, bool) {
	for _, b := range c.branches {
		if b.cond(rec, ctx) {
			return b.rule.Evaluate(rec, ctx)
		}
	}
	return domain.Finding{}, false
}

// Flag always reports tag.
func Flag(tag domain.FindingTag, detail string) Rule {
	return Func(string(tag), func(domain.Record, Context) (domain.Finding, bool) {
		return domain.Finding{Tag: tag, Detail: detail}, true
	})
}

// Pass never reports anything.
func Pass() Rule {
	return Func("pass", func(domain.Record, Context) (domain.Finding, bool) {
		return domain.Finding{}, false
	})
}

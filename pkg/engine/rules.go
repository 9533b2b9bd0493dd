package engine

import (
	"fmt"
	"strings"

	"SignalForge/pkg/model"
)

// Rule tagged predicate over an observation
type Rule struct {
	Name        string
	Description string
	Match       func(obs model.WalletObservation) bool
}

// Built-in pattern names
const (
	PatternEmptyWallet      = "Empty Wallet"
	PatternWhaleWallet      = "Whale Wallet"
	PatternDormantAwakening = "Dormant Awakening"
	PatternAccumulation     = "Accumulation Behavior"
)

const (
	accumulationMinTokens    = 3
	accumulationMaxTransfers = 5
)

// BuiltInRules the four default rules in evaluation order
func BuiltInRules(cfg model.RuleConfiguration) []Rule {
	whale := cfg.WhaleTokenThreshold
	dormant := cfg.DormantAwakeningThreshold

	return []Rule{
		{
			Name:        PatternEmptyWallet,
			Description: "Wallet holds no tokens and has no transactions.",
			Match:       func(o model.WalletObservation) bool { return o.IsEmpty() },
		},
		{
			Name:        PatternWhaleWallet,
			Description: fmt.Sprintf("Wallet holds at least %d tokens.", whale),
			Match:       func(o model.WalletObservation) bool { return o.TokensHeld >= whale },
		},
		{
			// unreachable unless dormant > 20: High Activity already means more than 20 transactions
			Name:        PatternDormantAwakening,
			Description: "Previously inactive wallet is now highly active.",
			Match: func(o model.WalletObservation) bool {
				return o.ActivityType == model.ActivityHigh && o.TransactionCount < dormant
			},
		},
		{
			Name:        PatternAccumulation,
			Description: "Wallet is accumulating tokens quietly.",
			Match: func(o model.WalletObservation) bool {
				return o.TokensHeld >= accumulationMinTokens && o.TransactionCount <= accumulationMaxTransfers
			},
		},
	}
}

// CompileRule turns a stored rule into a predicate. A rule without conditions never fires.
func CompileRule(r model.PatternRule) (Rule, error) {
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}

	conds := make([]model.DetectionCondition, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		n, err := c.Normalize()
		if err != nil {
			return Rule{}, fmt.Errorf("pattern %q: %w", r.Name, err)
		}
		conds = append(conds, n)
	}

	return Rule{
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Match: func(o model.WalletObservation) bool {
			if len(conds) == 0 {
				return false
			}
			for _, c := range conds {
				if !evaluateCondition(c, o) {
					return false
				}
			}
			return true
		},
	}, nil
}

// evaluateCondition expects a normalized condition
func evaluateCondition(c model.DetectionCondition, o model.WalletObservation) bool {
	switch c.Field {
	case model.FieldTokensHeld:
		return compareNumber(float64(o.TokensHeld), c.Operator, c.Value.(float64))
	case model.FieldTransactionCount:
		return compareNumber(float64(o.TransactionCount), c.Operator, c.Value.(float64))
	case model.FieldActivityType:
		return compareText(string(o.ActivityType), c.Operator, c.Value.(string))
	case model.FieldBehaviorType:
		return compareText(string(o.BehaviorType), c.Operator, c.Value.(string))
	}
	return false
}

func compareNumber(actual float64, op string, expected float64) bool {
	switch op {
	case model.OpEqual:
		return actual == expected
	case model.OpNotEqual:
		return actual != expected
	case model.OpGreater:
		return actual > expected
	case model.OpGreaterEqual:
		return actual >= expected
	case model.OpLess:
		return actual < expected
	case model.OpLessEqual:
		return actual <= expected
	}
	return false
}

func compareText(actual, op, expected string) bool {
	switch op {
	case model.OpEqual:
		return actual == expected
	case model.OpNotEqual:
		return actual != expected
	}
	return false
}

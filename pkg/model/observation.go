package model

import (
	"fmt"
	"strings"
)

// ActivityType activity bucket derived from the recent transaction count
type ActivityType string

const (
	ActivityDormant  ActivityType = "Dormant Wallet"    // 0
	ActivityLow      ActivityType = "Low Activity"      // 1-5
	ActivityModerate ActivityType = "Moderate Activity" // 6-20
	ActivityHigh     ActivityType = "High Activity"     // >20
)

// ActivityTypes all buckets in ascending order
var ActivityTypes = []ActivityType{ActivityDormant, ActivityLow, ActivityModerate, ActivityHigh}

// BehaviorType holding style derived from both counts
type BehaviorType string

const (
	BehaviorHolder       BehaviorType = "Holder"
	BehaviorActiveTrader BehaviorType = "Active Trader"
)

// ClassifyActivity maps a transaction count onto its activity bucket
func ClassifyActivity(transactionCount int) ActivityType {
	switch {
	case transactionCount <= 0:
		return ActivityDormant
	case transactionCount <= 5:
		return ActivityLow
	case transactionCount <= 20:
		return ActivityModerate
	default:
		return ActivityHigh
	}
}

// ClassifyBehavior returns Holder for few transactions over several holdings
func ClassifyBehavior(tokensHeld, transactionCount int) BehaviorType {
	if transactionCount < 5 && tokensHeld >= 2 {
		return BehaviorHolder
	}
	return BehaviorActiveTrader
}

// ParseActivityType accepts the full label or its short form, case-insensitive
func ParseActivityType(label string) (ActivityType, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "dormant wallet", "dormant":
		return ActivityDormant, nil
	case "low activity", "low":
		return ActivityLow, nil
	case "moderate activity", "moderate":
		return ActivityModerate, nil
	case "high activity", "high":
		return ActivityHigh, nil
	}
	return "", fmt.Errorf("unknown activity type %q", label)
}

// ParseBehaviorType accepts "Holder" and "Active Trader" (or "ActiveTrader"), case-insensitive
func ParseBehaviorType(label string) (BehaviorType, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "holder":
		return BehaviorHolder, nil
	case "active trader", "activetrader", "active_trader":
		return BehaviorActiveTrader, nil
	}
	return "", fmt.Errorf("unknown behavior type %q", label)
}

// WalletObservation classified summary of one wallet, built once per request
type WalletObservation struct {
	Address          string       `json:"address"`
	TokensHeld       int          `json:"tokensHeld"`
	TransactionCount int          `json:"transactionCount"` // capped by the collector's fetch limit
	ActivityType     ActivityType `json:"activityType"`
	BehaviorType     BehaviorType `json:"behaviorType"`
}

// NewWalletObservation validates the raw counts and derives the classification
func NewWalletObservation(address string, tokensHeld, transactionCount int) (WalletObservation, error) {
	obs := WalletObservation{
		Address:          strings.TrimSpace(address),
		TokensHeld:       tokensHeld,
		TransactionCount: transactionCount,
	}
	if obs.Address == "" {
		return WalletObservation{}, fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if tokensHeld < 0 || transactionCount < 0 {
		return WalletObservation{}, fmt.Errorf("%w: counts must be non-negative (tokens=%d, transactions=%d)",
			ErrInvalidInput, tokensHeld, transactionCount)
	}
	obs.ActivityType = ClassifyActivity(transactionCount)
	obs.BehaviorType = ClassifyBehavior(tokensHeld, transactionCount)
	return obs, nil
}

// Validate checks an observation that did not come from NewWalletObservation,
// e.g. one decoded from a request body.
func (o WalletObservation) Validate() error {
	if strings.TrimSpace(o.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidInput)
	}
	if o.TokensHeld < 0 || o.TransactionCount < 0 {
		return fmt.Errorf("%w: counts must be non-negative", ErrInvalidInput)
	}
	if o.ActivityType != ClassifyActivity(o.TransactionCount) {
		return fmt.Errorf("%w: activity type %q does not match %d transactions",
			ErrInvalidInput, o.ActivityType, o.TransactionCount)
	}
	if o.BehaviorType != ClassifyBehavior(o.TokensHeld, o.TransactionCount) {
		return fmt.Errorf("%w: behavior type %q does not match counts", ErrInvalidInput, o.BehaviorType)
	}
	return nil
}

// IsEmpty no holdings and no activity
func (o WalletObservation) IsEmpty() bool {
	return o.TokensHeld == 0 && o.TransactionCount == 0
}

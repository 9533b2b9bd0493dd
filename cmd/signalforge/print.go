package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"SignalForge/pkg/model"
	"SignalForge/pkg/scanner"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	label   = color.New(color.Faint)
	warning = color.New(color.FgYellow)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed, color.Bold)
)

func fail(err error) {
	failure.Fprintf(os.Stderr, "Error: %v\n", err)
}

func recommendationColor(rec model.Recommendation) *color.Color {
	switch rec {
	case model.RecommendationBuy:
		return color.New(color.FgGreen, color.Bold)
	case model.RecommendationAvoid:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgYellow, color.Bold)
	}
}

func field(name string, value interface{}) {
	label.Printf("%-14s", name+":")
	fmt.Printf(" %v\n", value)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printScan(r scanner.ScanResult) {
	heading.Println("Wallet scan")
	field("Wallet", r.Address)
	field("Tokens held", r.TokensHeld)
	field("Transactions", r.TransactionCount)
	field("Activity", r.ActivityType)
	field("Behavior", r.BehaviorType)
	field("Whale", r.IsWhale)
	field("Patterns", joinOr(model.PatternNames(r.Patterns), "none"))
	if len(r.TopTokens) > 0 {
		label.Println("Top tokens:")
		for _, t := range r.TopTokens {
			fmt.Printf("  %-44s %v\n", t.Mint, t.UIAmount)
		}
	}
	for _, w := range r.Warnings {
		warning.Printf("! %s\n", w)
	}
}

func printAnalysis(a model.Analysis) {
	s := a.Signal
	heading.Println("Signal")
	field("Wallet", s.Address)
	label.Printf("%-14s", "Signal:")
	recommendationColor(s.Recommendation).Printf(" %s\n", s.Recommendation)
	field("Confidence", fmt.Sprintf("%.2f", s.Confidence))
	field("Risk score", fmt.Sprintf("%.2f / 10", s.RiskScore))
	field("Patterns", joinOr(model.PatternNames(a.Patterns), "none"))
	field("Reason", s.Reason)
	field("AI comment", s.Annotation)
}

func printPatterns(rules []model.PatternRule) {
	if len(rules) == 0 {
		warning.Println("No custom patterns stored.")
		return
	}
	heading.Printf("%d custom pattern(s)\n", len(rules))
	for _, r := range rules {
		conds := make([]string, 0, len(r.Conditions))
		for _, c := range r.Conditions {
			conds = append(conds, c.String())
		}
		fmt.Printf("- %s: %s [%s]\n", color.New(color.Bold).Sprint(r.Name), r.Description, joinOr(conds, "no conditions"))
	}
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

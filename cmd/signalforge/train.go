package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"SignalForge/pkg/app"
	"SignalForge/pkg/model"
)

var (
	trainName        string
	trainDescription string
	trainConditions  []string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Add a new custom pattern",
	Long: `Adds a custom pattern. Without --name the pattern is read interactively.
Conditions use field<op>value, e.g. tokens_held>=50 or activity_type=High.`,
	RunE: runTrain,
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Manage stored custom patterns",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List custom patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		rules, err := a.Service.Patterns(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), rules)
		}
		printPatterns(rules)
		return nil
	},
}

var patternsDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a custom pattern by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.DeletePattern(cmd.Context(), args[0]); err != nil {
			return err
		}
		success.Printf("Pattern %q deleted.\n", args[0])
		return nil
	},
}

var patternsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every custom pattern",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.ClearPatterns(cmd.Context()); err != nil {
			return err
		}
		success.Println("Pattern memory cleared.")
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainName, "name", "", "Pattern name")
	trainCmd.Flags().StringVar(&trainDescription, "description", "", "Pattern description")
	trainCmd.Flags().StringArrayVar(&trainConditions, "condition", nil, "Condition, repeatable (tokens_held>=50)")

	patternsListCmd.Flags().BoolVar(&outputJSON, "json", false, "Print JSON instead of text")
	patternsCmd.AddCommand(patternsListCmd, patternsDeleteCmd, patternsClearCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	var (
		rule model.PatternRule
		err  error
	)
	if trainName != "" {
		rule, err = ruleFromFlags(trainName, trainDescription, trainConditions)
	} else {
		rule, err = promptRule(os.Stdin, os.Stdout)
	}
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Service.Train(cmd.Context(), rule); err != nil {
		return err
	}
	success.Println("Pattern saved successfully.")
	return nil
}

func ruleFromFlags(name, description string, conditions []string) (model.PatternRule, error) {
	rule := model.PatternRule{Name: name, Description: description}
	for _, text := range conditions {
		c, err := model.ParseCondition(text)
		if err != nil {
			return model.PatternRule{}, err
		}
		rule.Conditions = append(rule.Conditions, c)
	}
	return rule, nil
}

// promptRule reads a rule interactively; conditions end with "done"
func promptRule(in io.Reader, out io.Writer) (model.PatternRule, error) {
	reader := bufio.NewScanner(in)
	ask := func(prompt string) (string, bool) {
		fmt.Fprint(out, prompt)
		if !reader.Scan() {
			return "", false
		}
		return strings.TrimSpace(reader.Text()), true
	}

	var rule model.PatternRule
	var ok bool
	if rule.Name, ok = ask("Enter pattern name: "); !ok {
		return rule, errors.New("no pattern name given")
	}
	if rule.Description, ok = ask("Enter pattern description: "); !ok {
		return rule, errors.New("no pattern description given")
	}

	fmt.Fprintln(out, "Enter conditions as field<op>value (e.g. tokens_held>=5). Type 'done' when finished.")
	for {
		line, ok := ask("> ")
		if !ok || strings.EqualFold(line, "done") {
			break
		}
		if line == "" {
			continue
		}
		c, err := model.ParseCondition(line)
		if err != nil {
			fmt.Fprintf(out, "Invalid condition: %v\n", err)
			continue
		}
		rule.Conditions = append(rule.Conditions, c)
	}
	return rule, reader.Err()
}

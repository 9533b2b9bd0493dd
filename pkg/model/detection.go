package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pattern named behavioral flag raised by one rule
type Pattern struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PatternNames names in detection order
func PatternNames(patterns []Pattern) []string {
	names := make([]string, 0, len(patterns))
	for _, p := range patterns {
		names = append(names, p.Name)
	}
	return names
}

// Condition fields a custom rule may test
const (
	FieldTokensHeld       = "tokens_held"
	FieldTransactionCount = "transaction_count"
	FieldActivityType     = "activity_type"
	FieldBehaviorType     = "behavior_type"
)

// Comparison operators; "=" is read as "=="
const (
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
)

// operators longest first so ">=" is never split as ">" "="
var textOperators = []string{">=", "<=", "!=", "==", ">", "<", "="}

// DetectionCondition one comparison inside a custom rule
type DetectionCondition struct {
	Field    string      `json:"field" yaml:"field"`       // tokens_held, transaction_count, activity_type, behavior_type
	Operator string      `json:"operator" yaml:"operator"` // ==, !=, >, >=, <, <=
	Value    interface{} `json:"value" yaml:"value"`
}

// String renders the condition in the same form ParseCondition reads
func (c DetectionCondition) String() string {
	return fmt.Sprintf("%s%s%v", c.Field, c.Operator, c.Value)
}

// IsNumeric reports whether the field compares as a count
func (c DetectionCondition) IsNumeric() bool {
	return c.Field == FieldTokensHeld || c.Field == FieldTransactionCount
}

// Normalize returns the canonical form: lower-case field, "==" for "=",
// a float64 value for count fields and the full enum label for text fields.
func (c DetectionCondition) Normalize() (DetectionCondition, error) {
	out := DetectionCondition{
		Field:    strings.ToLower(strings.TrimSpace(c.Field)),
		Operator: strings.TrimSpace(c.Operator),
	}
	if out.Operator == "=" || out.Operator == "" {
		out.Operator = OpEqual
	}

	switch out.Operator {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
	default:
		return DetectionCondition{}, fmt.Errorf("%w: unsupported operator %q", ErrInvalidCondition, c.Operator)
	}

	switch out.Field {
	case FieldTokensHeld, FieldTransactionCount:
		n, err := toFloat(c.Value)
		if err != nil {
			return DetectionCondition{}, fmt.Errorf("%w: %s: %v", ErrInvalidCondition, out.Field, err)
		}
		out.Value = n
	case FieldActivityType, FieldBehaviorType:
		if out.Operator != OpEqual && out.Operator != OpNotEqual {
			return DetectionCondition{}, fmt.Errorf("%w: %s only supports == and !=", ErrInvalidCondition, out.Field)
		}
		s, ok := c.Value.(string)
		if !ok {
			return DetectionCondition{}, fmt.Errorf("%w: %s expects a text value", ErrInvalidCondition, out.Field)
		}
		if out.Field == FieldActivityType {
			a, err := ParseActivityType(s)
			if err != nil {
				return DetectionCondition{}, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
			}
			out.Value = string(a)
		} else {
			b, err := ParseBehaviorType(s)
			if err != nil {
				return DetectionCondition{}, fmt.Errorf("%w: %v", ErrInvalidCondition, err)
			}
			out.Value = string(b)
		}
	default:
		return DetectionCondition{}, fmt.Errorf("%w: unknown field %q", ErrInvalidCondition, c.Field)
	}
	return out, nil
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("value %v is not a number", v)
}

// ParseCondition reads "field<op>value", e.g. "tokens_held>=5" or "activity_type=High"
func ParseCondition(text string) (DetectionCondition, error) {
	text = strings.TrimSpace(text)
	for _, op := range textOperators {
		idx := strings.Index(text, op)
		if idx <= 0 {
			continue
		}
		// part of a longer operator, e.g. the ">" in "=>"
		if strings.ContainsAny(text[idx-1:idx], "<>!=") {
			continue
		}
		cond := DetectionCondition{
			Field:    strings.TrimSpace(text[:idx]),
			Operator: op,
			Value:    strings.TrimSpace(text[idx+len(op):]),
		}
		return cond.Normalize()
	}
	return DetectionCondition{}, fmt.Errorf("%w: cannot parse %q", ErrInvalidCondition, text)
}

// Conditions decodes from either a list of conditions or a field -> value map.
// Map values may carry a leading operator (">=5"); a bare value means equality.
type Conditions []DetectionCondition

// UnmarshalJSON implements json.Unmarshaler
func (c *Conditions) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*c = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []DetectionCondition
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*c = list
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	conds, err := ConditionsFromMap(m)
	if err != nil {
		return err
	}
	*c = conds
	return nil
}

// UnmarshalYAML accepts the same two layouts as UnmarshalJSON
func (c *Conditions) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []DetectionCondition
		if err := value.Decode(&list); err != nil {
			return err
		}
		*c = list
		return nil
	case yaml.MappingNode:
		var m map[string]interface{}
		if err := value.Decode(&m); err != nil {
			return err
		}
		conds, err := ConditionsFromMap(m)
		if err != nil {
			return err
		}
		*c = conds
		return nil
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*c = nil
			return nil
		}
	}
	return fmt.Errorf("%w: conditions must be a list or a mapping", ErrInvalidCondition)
}

// ConditionsFromMap converts the key=value form the interactive trainer produces
func ConditionsFromMap(m map[string]interface{}) (Conditions, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Conditions, 0, len(m))
	for _, k := range keys {
		cond := DetectionCondition{Field: k, Operator: OpEqual, Value: m[k]}
		if s, ok := m[k].(string); ok {
			s = strings.TrimSpace(s)
			for _, op := range textOperators {
				if strings.HasPrefix(s, op) {
					cond.Operator = op
					cond.Value = strings.TrimSpace(strings.TrimPrefix(s, op))
					break
				}
			}
		}
		n, err := cond.Normalize()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// PatternRule operator-defined rule; all conditions must hold for it to fire
type PatternRule struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Conditions  Conditions `json:"conditions" yaml:"conditions"`
}

// Validate checks the name and every condition
func (r PatternRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: pattern name is required", ErrInvalidInput)
	}
	for _, c := range r.Conditions {
		if _, err := c.Normalize(); err != nil {
			return fmt.Errorf("pattern %q: %w", r.Name, err)
		}
	}
	return nil
}

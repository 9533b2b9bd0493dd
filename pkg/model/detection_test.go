package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		text  string
		field string
		op    string
		value interface{}
	}{
		{"tokens_held>=5", FieldTokensHeld, OpGreaterEqual, 5.0},
		{"transaction_count <= 3", FieldTransactionCount, OpLessEqual, 3.0},
		{"tokens_held=7", FieldTokensHeld, OpEqual, 7.0},
		{"tokens_held==7", FieldTokensHeld, OpEqual, 7.0},
		{"transaction_count!=0", FieldTransactionCount, OpNotEqual, 0.0},
		{"tokens_held>1", FieldTokensHeld, OpGreater, 1.0},
		{"activity_type=High", FieldActivityType, OpEqual, string(ActivityHigh)},
		{"behavior_type != holder", FieldBehaviorType, OpNotEqual, string(BehaviorHolder)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			c, err := ParseCondition(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.field, c.Field)
			assert.Equal(t, tt.op, c.Operator)
			assert.Equal(t, tt.value, c.Value)
		})
	}
}

func TestParseConditionErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"tokens_held",
		"balance>=5",
		"tokens_held>=many",
		"activity_type>High",
		"activity_type=Frantic",
		">=5",
	} {
		_, err := ParseCondition(text)
		assert.ErrorIs(t, err, ErrInvalidCondition, text)
	}
}

func TestConditionsUnmarshalList(t *testing.T) {
	var rule PatternRule
	body := `{"name":"Big","description":"d","conditions":[{"field":"tokens_held","operator":">=","value":50}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &rule))
	require.Len(t, rule.Conditions, 1)
	assert.Equal(t, FieldTokensHeld, rule.Conditions[0].Field)
	assert.NoError(t, rule.Validate())
}

func TestConditionsUnmarshalMap(t *testing.T) {
	var rule PatternRule
	body := `{"name":"Quiet","description":"d","conditions":{"transaction_count":"<=2","activity_type":"Low"}}`
	require.NoError(t, json.Unmarshal([]byte(body), &rule))
	require.Len(t, rule.Conditions, 2)

	// keys are sorted
	assert.Equal(t, DetectionCondition{Field: FieldActivityType, Operator: OpEqual, Value: string(ActivityLow)}, rule.Conditions[0])
	assert.Equal(t, DetectionCondition{Field: FieldTransactionCount, Operator: OpLessEqual, Value: 2.0}, rule.Conditions[1])
}

func TestConditionsUnmarshalMapRejectsUnknownField(t *testing.T) {
	var rule PatternRule
	err := json.Unmarshal([]byte(`{"name":"x","conditions":{"price":"5"}}`), &rule)
	assert.Error(t, err)
}

func TestPatternRuleValidate(t *testing.T) {
	assert.ErrorIs(t, PatternRule{Name: " "}.Validate(), ErrInvalidInput)

	bad := PatternRule{Name: "x", Conditions: Conditions{{Field: "tokens_held", Operator: "~", Value: 1}}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidCondition)

	assert.NoError(t, PatternRule{Name: "never"}.Validate())
}

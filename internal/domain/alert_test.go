package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewAlert_ValidInputCreatesActiveAlert(t *testing.T) {
	alert, err := NewAlert("trader@example.com", "BTC", decimal.NewFromInt(50000), ConditionAbove, false)

	assert.NoError(t, err)
	assert.True(t, alert.Active)
	assert.False(t, alert.Repeat)
	assert.NotEqual(t, "", alert.ID.String())
	assert.False(t, alert.CreatedAt.IsZero())
}

func TestNewAlert_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		symbol    string
		threshold decimal.Decimal
		condition AlertCondition
	}{
		{"malformed email", "not-an-email", "BTC", decimal.NewFromInt(100), ConditionAbove},
		{"symbol too short", "a@example.com", "BT", decimal.NewFromInt(100), ConditionAbove},
		{"zero threshold", "a@example.com", "BTC", decimal.Zero, ConditionAbove},
		{"negative threshold", "a@example.com", "BTC", decimal.NewFromInt(-5), ConditionBelow},
		{"unknown condition", "a@example.com", "BTC", decimal.NewFromInt(100), AlertCondition("SIDEWAYS")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAlert(tt.email, tt.symbol, tt.threshold, tt.condition, false)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSatisfiedBy_AboveIncludesExactThreshold(t *testing.T) {
	alert := &Alert{Threshold: decimal.NewFromInt(50000), Condition: ConditionAbove}

	assert.False(t, alert.SatisfiedBy(decimal.NewFromInt(49999)))
	assert.True(t, alert.SatisfiedBy(decimal.NewFromInt(50000)))
	assert.True(t, alert.SatisfiedBy(decimal.NewFromInt(50001)))
}

func TestSatisfiedBy_BelowIncludesExactThreshold(t *testing.T) {
	alert := &Alert{Threshold: decimal.NewFromInt(3000), Condition: ConditionBelow}

	assert.True(t, alert.SatisfiedBy(decimal.NewFromInt(2999)))
	assert.True(t, alert.SatisfiedBy(decimal.NewFromInt(3000)))
	assert.False(t, alert.SatisfiedBy(decimal.NewFromInt(3001)))
}

func TestDeactivated_ReturnsCopyLeavingOriginalUntouched(t *testing.T) {
	alert, err := NewAlert("trader@example.com", "BTC", decimal.NewFromInt(50000), ConditionAbove, false)
	assert.NoError(t, err)

	inactive := alert.Deactivated()

	assert.False(t, inactive.Active)
	assert.True(t, alert.Active)
	assert.Equal(t, alert.ID, inactive.ID)
}

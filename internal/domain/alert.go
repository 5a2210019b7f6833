package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertCondition determines on which side of the threshold an alert fires
type AlertCondition string

const (
	ConditionAbove AlertCondition = "ABOVE"
	ConditionBelow AlertCondition = "BELOW"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Alert represents a user-defined price alert for a cryptocurrency.
// Threshold and condition are fixed at creation; changing them means
// replacing the alert, not patching it in place.
type Alert struct {
	ID         uuid.UUID
	Email      string
	Symbol     string
	Threshold  decimal.Decimal
	Condition  AlertCondition
	Repeat     bool
	TelegramID int64 // optional secondary channel, 0 when unset
	Active     bool
	CreatedAt  time.Time
}

// NewAlert creates an active alert with a generated ID.
// Returns an error wrapping ErrValidation if any field violates domain rules.
func NewAlert(email, symbol string, threshold decimal.Decimal, condition AlertCondition, repeat bool) (*Alert, error) {
	a := &Alert{
		ID:        uuid.New(),
		Email:     email,
		Symbol:    symbol,
		Threshold: threshold,
		Condition: condition,
		Repeat:    repeat,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate ensures the alert adheres to domain rules
func (a *Alert) Validate() error {
	if !emailPattern.MatchString(a.Email) {
		return fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if len(a.Symbol) < 3 || len(a.Symbol) > 100 {
		return fmt.Errorf("%w: symbol must be between 3 and 100 characters", ErrValidation)
	}
	if a.Threshold.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: threshold must be positive", ErrValidation)
	}
	if a.Condition != ConditionAbove && a.Condition != ConditionBelow {
		return fmt.Errorf("%w: unknown alert condition %q", ErrValidation, a.Condition)
	}
	return nil
}

// SatisfiedBy reports whether the given price meets the alert condition.
// ABOVE is satisfied when price >= threshold, BELOW when price <= threshold.
func (a *Alert) SatisfiedBy(price decimal.Decimal) bool {
	if a.Condition == ConditionAbove {
		return price.GreaterThanOrEqual(a.Threshold)
	}
	return price.LessThanOrEqual(a.Threshold)
}

// Deactivated returns a copy of the alert with the active flag cleared.
// The original value is left untouched so concurrent readers never observe
// a half-updated alert.
func (a *Alert) Deactivated() *Alert {
	out := *a
	out.Active = false
	return &out
}

package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// UserPreference stores a user's notification channel settings.
// Read far more often than written, which is why it sits behind the
// cached repository in the dispatch service. Email is the natural key.
type UserPreference struct {
	ID              uuid.UUID
	Email           string
	EmailEnabled    bool
	TelegramID      int64 // 0 when the user never linked Telegram
	TelegramEnabled bool
}

// Validate ensures the preference adheres to domain rules
func (p *UserPreference) Validate() error {
	if len(p.Email) < 5 || len(p.Email) > 100 {
		return fmt.Errorf("%w: email length must be between 5 and 100 characters", ErrValidation)
	}
	if p.TelegramEnabled && p.TelegramID == 0 {
		return fmt.Errorf("%w: telegram channel enabled without a telegram id", ErrValidation)
	}
	return nil
}

// AnyChannelEnabled reports whether at least one delivery channel is on
func (p *UserPreference) AnyChannelEnabled() bool {
	return p.EmailEnabled || p.TelegramEnabled
}

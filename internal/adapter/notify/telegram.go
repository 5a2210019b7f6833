package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSender delivers alert messages through the Telegram Bot API
type TelegramSender struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewTelegramSender creates a Telegram sender for the given bot token.
// An empty baseURL selects the official Bot API host.
func NewTelegramSender(baseURL, token string, timeout time.Duration) *TelegramSender {
	if baseURL == "" {
		baseURL = telegramAPIBase
	}
	return &TelegramSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendTelegram delivers the message to the given chat
func (s *TelegramSender) SendTelegram(ctx context.Context, chatID int64, message string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: message})
	if err != nil {
		return fmt.Errorf("failed to encode telegram request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed sendMessageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode telegram response (status %d): %w", resp.StatusCode, err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram rejected message for chat %d: %s", chatID, parsed.Description)
	}
	return nil
}

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSendTelegram_PostsToBotEndpoint(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	sender := NewTelegramSender(server.URL, "test-token", 5*time.Second)
	err := sender.SendTelegram(context.Background(), 42, "BTC crossed 50000")

	assert.NoError(t, err)
	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, int64(42), gotBody.ChatID)
	assert.Equal(t, "BTC crossed 50000", gotBody.Text)
}

func TestSendTelegram_SurfacesAPIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	sender := NewTelegramSender(server.URL, "test-token", 5*time.Second)
	err := sender.SendTelegram(context.Background(), 42, "hello")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

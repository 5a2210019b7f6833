package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublish_DeliversToSubscribedHandler(t *testing.T) {
	b := New(4, 16, testLogger())

	var mu sync.Mutex
	var got []string
	b.Subscribe("price-updates", func(ctx context.Context, payload []byte) error {
		var msg map[string]string
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, msg["symbol"])
		mu.Unlock()
		return nil
	})

	b.Start(context.Background())
	assert.NoError(t, b.Publish(context.Background(), "price-updates", "BTC", map[string]string{"symbol": "BTC"}))
	b.Close()

	assert.Equal(t, []string{"BTC"}, got)
}

func TestPublish_SameKeyPreservesOrder(t *testing.T) {
	b := New(4, 64, testLogger())

	var mu sync.Mutex
	var got []int
	b.Subscribe("price-updates", func(ctx context.Context, payload []byte) error {
		var n int
		if err := json.Unmarshal(payload, &n); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		return nil
	})

	b.Start(context.Background())
	for i := 0; i < 50; i++ {
		assert.NoError(t, b.Publish(context.Background(), "price-updates", "ETH", i))
	}
	b.Close()

	assert.Len(t, got, 50)
	for i, n := range got {
		assert.Equal(t, i, n)
	}
}

func TestPublish_UnknownTopicIsDropped(t *testing.T) {
	b := New(2, 8, testLogger())

	var mu sync.Mutex
	delivered := 0
	b.Subscribe("alert-triggered", func(ctx context.Context, payload []byte) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	b.Start(context.Background())
	assert.NoError(t, b.Publish(context.Background(), "some-other-topic", "k", "v"))
	b.Close()

	assert.Equal(t, 0, delivered)
}

func TestPublish_HandlerErrorDoesNotStallPartition(t *testing.T) {
	b := New(1, 8, testLogger())

	var mu sync.Mutex
	var got []string
	b.Subscribe("alert-triggered", func(ctx context.Context, payload []byte) error {
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
		if s == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	b.Start(context.Background())
	assert.NoError(t, b.Publish(context.Background(), "alert-triggered", "k", "bad"))
	assert.NoError(t, b.Publish(context.Background(), "alert-triggered", "k", "good"))
	b.Close()

	assert.Equal(t, []string{"bad", "good"}, got)
}

func TestPublish_FromHandlerOnOwnPartitionDoesNotStall(t *testing.T) {
	// One partition and no pre-sized buffer: the follow-up event lands on
	// the same worker that is still inside the price-updates handler. This
	// mirrors the evaluator firing alert-triggered for the symbol it is
	// evaluating.
	b := New(1, 0, testLogger())

	triggered := make(chan string, 1)
	b.Subscribe("price-updates", func(ctx context.Context, payload []byte) error {
		return b.Publish(ctx, "alert-triggered", "BTC", "fired")
	})
	b.Subscribe("alert-triggered", func(ctx context.Context, payload []byte) error {
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return err
		}
		triggered <- s
		return nil
	})

	b.Start(context.Background())
	assert.NoError(t, b.Publish(context.Background(), "price-updates", "BTC", "tick"))

	select {
	case got := <-triggered:
		assert.Equal(t, "fired", got)
	case <-time.After(2 * time.Second):
		t.Fatal("follow-up event was never delivered")
	}
	b.Close()
}

func TestPublish_AfterCloseFails(t *testing.T) {
	b := New(2, 8, testLogger())
	b.Start(context.Background())
	b.Close()

	err := b.Publish(context.Background(), "price-updates", "BTC", "x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublish_UnserializablePayloadFails(t *testing.T) {
	b := New(2, 8, testLogger())
	b.Start(context.Background())
	defer b.Close()

	err := b.Publish(context.Background(), "price-updates", "BTC", make(chan int))
	assert.Error(t, err)
}

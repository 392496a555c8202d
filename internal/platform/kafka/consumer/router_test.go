package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var got []string
	record := func(name string) Handler {
		return HandlerFunc(func(_ context.Context, msg *Message) error {
			got = append(got, name+":"+string(msg.Key))
			return nil
		})
	}

	t.Run("dispatches by topic", func(t *testing.T) {
		got = nil
		r := NewRouter(logger, nil)
		r.Register("ledger", record("ledger"))
		r.Register("notify", record("notify"))

		assert.NoError(t, r.Handle(context.Background(), &Message{Topic: "notify", Key: []byte("a")}))
		assert.NoError(t, r.Handle(context.Background(), &Message{Topic: "ledger", Key: []byte("b")}))
		assert.Equal(t, []string{"notify:a", "ledger:b"}, got)
	})

	t.Run("unknown topic skipped without fallback", func(t *testing.T) {
		got = nil
		r := NewRouter(logger, nil)
		assert.NoError(t, r.Handle(context.Background(), &Message{Topic: "other"}))
		assert.Empty(t, got)
	})

	t.Run("unknown topic goes to fallback", func(t *testing.T) {
		got = nil
		r := NewRouter(logger, record("fallback"))
		assert.NoError(t, r.Handle(context.Background(), &Message{Topic: "other", Key: []byte("k")}))
		assert.Equal(t, []string{"fallback:k"}, got)
	})

	t.Run("handler error propagates", func(t *testing.T) {
		boom := errors.New("boom")
		r := NewRouter(logger, nil)
		r.Register("ledger", HandlerFunc(func(context.Context, *Message) error { return boom }))
		assert.ErrorIs(t, r.Handle(context.Background(), &Message{Topic: "ledger"}), boom)
	})
}

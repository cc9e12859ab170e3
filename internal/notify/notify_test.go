package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookEmitter_PostsEvent(t *testing.T) {
	var got Event
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Service-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	em := NewWebhookEmitter(srv.URL, "secret", time.Second)
	ev := Event{Type: EventNewCompliment, ComplimentID: "c1", SenderID: "s", RecipientID: "r"}

	require.NoError(t, em.Emit(context.Background(), ev))
	assert.Equal(t, "secret", token)
	assert.Equal(t, EventNewCompliment, got.Type)
	assert.Equal(t, "r", got.RecipientID)
}

func TestWebhookEmitter_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookEmitter(srv.URL, "", time.Second).Emit(context.Background(), Event{Type: EventSecretAdmirerMessage})
	assert.Error(t, err)
}

type failingEmitter struct{ err error }

func (f failingEmitter) Emit(context.Context, Event) error { return f.err }

func TestMulti_DeliversToAll(t *testing.T) {
	rec := &Recorder{}
	boom := errors.New("boom")
	m := Multi{failingEmitter{err: boom}, LogEmitter{}, rec}

	err := m.Emit(context.Background(), Event{Type: EventSecretAdmirerRevealed})
	assert.ErrorIs(t, err, boom)
	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventSecretAdmirerRevealed, events[0].Type)
}

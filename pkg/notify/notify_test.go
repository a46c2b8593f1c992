package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	received := make(chan NotificationPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p NotificationPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received <- p
	}))
	defer srv.Close()

	n := New(srv.URL, zerolog.Nop())
	require.NoError(t, n.Send(context.Background(), NotificationPayload{Title: "t", Event: EventDosSucceeded}))

	p := <-received
	assert.Equal(t, "t", p.Title)
	assert.Equal(t, EventDosSucceeded, p.Event)
}

func TestSend_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL, zerolog.Nop()).Send(context.Background(), NotificationPayload{})
	assert.ErrorContains(t, err, "502")
}

func TestAttackSucceeded_Async(t *testing.T) {
	received := make(chan NotificationPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p NotificationPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		received <- p
	}))
	defer srv.Close()

	New(srv.URL, zerolog.Nop()).AttackSucceeded(EventUnauthorizedSucceeded, "got in")

	select {
	case p := <-received:
		assert.Equal(t, EventUnauthorizedSucceeded, p.Event)
		assert.Equal(t, "got in", p.Body)
	case <-time.After(5 * time.Second):
		t.Fatal("alert not delivered")
	}
}

func TestDisabled(t *testing.T) {
	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
	assert.False(t, New("", zerolog.Nop()).Enabled())

	// must not panic
	nilNotifier.AttackSucceeded(EventDosSucceeded, "x")
}

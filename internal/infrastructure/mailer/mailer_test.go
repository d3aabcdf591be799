package mailer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientSend(t *testing.T) {
	var gotUser, gotPass, gotFrom, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages", r.URL.Path)
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotFrom = r.PostForm.Get("from")
		gotTo = r.PostForm.Get("to")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key-123", "orders@wholesale.example")
	err := client.Send(context.Background(), "buyer@example.com", "Order confirmed", "thanks")

	require.NoError(t, err)
	assert.Equal(t, "api", gotUser)
	assert.Equal(t, "key-123", gotPass)
	assert.Equal(t, "orders@wholesale.example", gotFrom)
	assert.Equal(t, "buyer@example.com", gotTo)
}

func TestClientSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad-key", "orders@wholesale.example")
	err := client.Send(context.Background(), "buyer@example.com", "s", "b")

	assert.Error(t, err)
}

func TestClientSendUnconfigured(t *testing.T) {
	client := NewClient("", "", "")
	assert.Error(t, client.Send(context.Background(), "a@b.c", "s", "b"))
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *recordingSender) Send(_ context.Context, to, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	return s.err
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 8, zap.NewNop())
	d.Start()

	require.NoError(t, d.Send(context.Background(), "a@b.c", "s1", "b1"))
	require.NoError(t, d.Send(context.Background(), "d@e.f", "s2", "b2"))

	d.Close()
	d.WaitClosed()

	assert.Equal(t, []string{"a@b.c", "d@e.f"}, sender.recipients())
}

func TestDispatcherSwallowsSendFailures(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(sender, 8, zap.NewNop())
	d.Start()

	require.NoError(t, d.Send(context.Background(), "a@b.c", "s", "b"))

	d.Close()
	d.WaitClosed()

	assert.Len(t, sender.recipients(), 1)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 1, zap.NewNop())
	// Not started: the buffer holds one message, the second is dropped.

	require.NoError(t, d.Send(context.Background(), "a@b.c", "s", "b"))
	require.NoError(t, d.Send(context.Background(), "overflow@example.com", "s", "b"))

	d.Start()
	d.Close()
	d.WaitClosed()

	assert.Equal(t, []string{"a@b.c"}, sender.recipients())
}

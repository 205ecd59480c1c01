package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTwilioRepo_Send(t *testing.T) {
	var got struct {
		path, user, pass, from, to, body string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got.path = r.URL.Path
		got.user, got.pass, _ = r.BasicAuth()
		got.from = r.PostForm.Get("From")
		got.to = r.PostForm.Get("To")
		got.body = r.PostForm.Get("Body")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	sender := NewTwilioRepo(srv.URL, "AC123", "secret", "whatsapp:+100", zap.NewNop())
	require.NoError(t, sender.Send(context.Background(), "whatsapp:+200", "hello"))

	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", got.path)
	assert.Equal(t, "AC123", got.user)
	assert.Equal(t, "secret", got.pass)
	assert.Equal(t, "whatsapp:+100", got.from)
	assert.Equal(t, "whatsapp:+200", got.to)
	assert.Equal(t, "hello", got.body)
}

func TestTwilioRepo_SendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	}))
	defer srv.Close()

	sender := NewTwilioRepo(srv.URL, "AC123", "secret", "whatsapp:+100", zap.NewNop())
	err := sender.Send(context.Background(), "whatsapp:bad", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
	assert.Contains(t, err.Error(), "Invalid 'To' Phone Number")
}

func TestTwilioRepo_SendCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := NewTwilioRepo(srv.URL, "AC123", "secret", "whatsapp:+100", zap.NewNop())
	assert.ErrorIs(t, sender.Send(ctx, "whatsapp:+200", "hello"), context.Canceled)
}

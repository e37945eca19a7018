package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTelegramSend(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottok123/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		got.Store(r.Form)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok123", "chat42",
		WithTelegramBaseURL(srv.URL), WithSendDelay(0))
	require.NoError(t, tg.Send(context.Background(), "*hello*"))

	form := got.Load().(url.Values)
	require.Equal(t, "chat42", form.Get("chat_id"))
	require.Equal(t, "*hello*", form.Get("text"))
	require.Equal(t, "Markdown", form.Get("parse_mode"))
}

func TestTelegramRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(429)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Too Many Requests","parameters":{"retry_after":1}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "chat",
		WithTelegramBaseURL(srv.URL), WithSendDelay(0))
	require.NoError(t, tg.Send(context.Background(), "hi"))
	require.Equal(t, int32(2), calls.Load())
}

func TestTelegramFailsAfterSecond429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(429)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Too Many Requests","parameters":{"retry_after":1}}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "chat",
		WithTelegramBaseURL(srv.URL), WithSendDelay(0))
	err := tg.Send(context.Background(), "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestTelegramTruncatesLongMessage(t *testing.T) {
	var gotLen atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotLen.Store(int32(len(r.Form.Get("text"))))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "chat",
		WithTelegramBaseURL(srv.URL), WithSendDelay(0))
	require.NoError(t, tg.Send(context.Background(), strings.Repeat("x", 5000)))
	require.Equal(t, int32(4096), gotLen.Load())
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/pkg/model"
	"SignalForge/pkg/platform/httpclient"
)

func testSignal() model.Signal {
	return model.Signal{
		Address:        "wallet-1",
		Recommendation: model.RecommendationBuy,
		Confidence:     0.8,
		Reason:         "Detected patterns: Whale Wallet",
		Annotation:     model.AnnotationNotAvailable,
		RiskScore:      4.5,
	}
}

func testClient() *httpclient.Client {
	return httpclient.NewClient(httpclient.ClientOptions{
		Timeout:         2 * time.Second,
		RequestsPerSec:  100,
		MaxRetries:      0,
		InitialInterval: time.Millisecond,
	})
}

type fakeChannel struct {
	name string
	err  error
	sent []model.Signal
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(_ context.Context, s model.Signal) error {
	f.sent = append(f.sent, s)
	return f.err
}

func TestNotifierContinuesAfterFailure(t *testing.T) {
	failing := &fakeChannel{name: "discord", err: errors.New("boom")}
	ok := &fakeChannel{name: "telegram"}
	n := New(failing, nil, ok)

	assert.True(t, n.Enabled())
	assert.Equal(t, []string{"discord", "telegram"}, n.Channels())

	err := n.Notify(context.Background(), testSignal())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord: boom")
	assert.Len(t, failing.sent, 1)
	assert.Len(t, ok.sent, 1)
}

func TestNotifierWithoutChannels(t *testing.T) {
	n := New()
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Notify(context.Background(), testSignal()))
}

func TestDiscordPayload(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewDiscord(srv.URL, testClient()).Send(context.Background(), testSignal()))
	assert.Equal(t,
		"New Signal: `BUY`\nWallet: `wallet-1`\nReason: Detected patterns: Whale Wallet\nConfidence: 0.8",
		body["content"])
}

func TestDiscordHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	assert.Error(t, NewDiscord(srv.URL, testClient()).Send(context.Background(), testSignal()))
}

func TestWebhookPostsRawSignal(t *testing.T) {
	var got model.Signal
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhook(srv.URL, testClient()).Send(context.Background(), testSignal()))
	assert.Equal(t, testSignal(), got)
}

func TestFormatTelegram(t *testing.T) {
	text := FormatTelegram(testSignal())
	assert.True(t, strings.HasPrefix(text, "📈 *New Signal: BUY*\nWallet: `wallet-1`"))
	assert.True(t, strings.HasSuffix(text, "Confidence: 0.8"))
}

func TestTelegramSend(t *testing.T) {
	var (
		mu   sync.Mutex
		form map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"forge","username":"forge_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			mu.Lock()
			form = map[string]string{
				"chat_id":    r.PostForm.Get("chat_id"),
				"text":       r.PostForm.Get("text"),
				"parse_mode": r.PostForm.Get("parse_mode"),
			}
			mu.Unlock()
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":1700000000,"chat":{"id":42,"type":"private"}}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tg, err := NewTelegram("token", 42, srv.URL+"/bot%s/%s")
	require.NoError(t, err)
	assert.Equal(t, "telegram", tg.Name())
	require.NoError(t, tg.Send(context.Background(), testSignal()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "42", form["chat_id"])
	assert.Equal(t, "Markdown", form["parse_mode"])
	assert.Equal(t, FormatTelegram(testSignal()), form["text"])
}

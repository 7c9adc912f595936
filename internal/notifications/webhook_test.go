package notifications

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureServer(t *testing.T, status int) (*httptest.Server, *map[string]string, *atomic.Int32) {
	t.Helper()
	received := map[string]string{}
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &received, &hits
}

func TestSend_NoWebhook(t *testing.T) {
	s := NewSender("", "TestBot")
	assert.False(t, s.Enabled())
	s.Send("hello from test")
}

func TestSend_SlackFormat(t *testing.T) {
	srv, received, _ := captureServer(t, http.StatusOK)

	s := NewSender(srv.URL, "TestBot")
	require.True(t, s.Enabled())
	s.Send("transfer 1 ETH mined in block 7")

	assert.Equal(t, "TestBot", (*received)["username"])
	assert.Equal(t, "`[TestBot] transfer 1 ETH mined in block 7`", (*received)["text"])
}

func TestSend_DiscordFormat(t *testing.T) {
	srv, received, _ := captureServer(t, http.StatusOK)

	s := NewSender(srv.URL+"/discord/webhook", "TrahnBot")
	s.Send("swap 10 UNI for WETH mined")

	assert.NotEmpty(t, (*received)["content"])
	assert.Equal(t, "TrahnBot", (*received)["username"])
	_, hasText := (*received)["text"]
	assert.False(t, hasText, "Discord payload should not have 'text' field")
}

func TestSend_SingleAttemptOnError(t *testing.T) {
	srv, _, hits := captureServer(t, http.StatusBadGateway)

	s := NewSender(srv.URL, "TestBot")
	s.Send("this will fail gracefully")
	assert.Equal(t, int32(1), hits.Load())
}

func TestSend_Unreachable(t *testing.T) {
	s := NewSender("http://localhost:1/bogus", "TestBot")
	s.Send("this will fail gracefully")
}

func TestDefaultBotName(t *testing.T) {
	s := NewSender("", "")
	assert.Equal(t, "TrahnWallet", s.botName)
}

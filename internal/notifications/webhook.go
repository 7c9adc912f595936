package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/trahn-wallet/internal/httputil"
	"github.com/rs/zerolog/log"
)

const defaultBotName = "TrahnWallet"

// Sender posts one-line announcements to a Slack or Discord webhook. Every
// message is also logged; delivery failures are logged and dropped.
type Sender struct {
	webhookURL string
	botName    string
	httpClient *http.Client
	timeout    time.Duration
}

func NewSender(webhookURL, botName string) *Sender {
	if botName == "" {
		botName = defaultBotName
	}
	return &Sender{
		webhookURL: webhookURL,
		botName:    botName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		timeout:    15 * time.Second,
	}
}

func (s *Sender) Send(msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.botName, msg)
	log.Info().Str("notify", s.botName).Msg(msg)

	if s.webhookURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := httputil.PostJSON(ctx, s.httpClient, s.webhookURL, s.formatPayload(formatted)); err != nil {
		log.Warn().Err(err).Msg("Failed to send webhook notification")
	}
}

func (s *Sender) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.botName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.botName,
	}
}

func (s *Sender) Enabled() bool {
	return s.webhookURL != ""
}

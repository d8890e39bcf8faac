package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"MentionScanner/internal/ports"
)

// Notifier sends alerts to a Telegram chat via bot API.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(apiBase, botToken, chatID string) *Notifier {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Notifier{
		apiBase:  strings.TrimSuffix(apiBase, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Publish posts a plain-text message to the configured chat.
func (n *Notifier) Publish(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", redactToken(err, n.botToken))
	}
	defer resp.Body.Close()

	if _, err := decode(resp); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// ErrNotOK is returned when the Bot API answers with ok=false or an unparsable body.
var ErrNotOK = errors.New("telegram api returned not ok")

// Client reads updates from the Telegram Bot API via long polling.
type Client struct {
	apiBase  string
	botToken string
	client   *http.Client
}

var _ ports.UpdateSource = (*Client)(nil)

// NewClient builds a Bot API client. apiBase defaults to the public endpoint.
func NewClient(apiBase, botToken string, httpClient *http.Client) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		apiBase:  strings.TrimSuffix(apiBase, "/"),
		botToken: botToken,
		client:   httpClient,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

type apiUpdate struct {
	UpdateID      int64       `json:"update_id"`
	Message       *apiMessage `json:"message"`
	ChannelPost   *apiMessage `json:"channel_post"`
	EditedMessage *apiMessage `json:"edited_message"`
}

type apiChat struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type apiMessage struct {
	MessageID int64   `json:"message_id"`
	Date      int64   `json:"date"`
	Chat      apiChat `json:"chat"`
	Text      string  `json:"text"`
	Caption   string  `json:"caption"`
}

// GetUpdates long-polls for updates with id >= offset. The HTTP timeout is
// the long-poll wait plus a margin, so a silent backend cannot hang the poller.
func (c *Client) GetUpdates(ctx context.Context, offset *int64, limit int, timeout time.Duration) ([]domain.ChatUpdate, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(int(timeout/time.Second)))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset != nil {
		params.Set("offset", strconv.FormatInt(*offset, 10))
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+10*time.Second)
	defer cancel()

	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", c.apiBase, c.botToken, params.Encode())
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", redactToken(err, c.botToken))
	}
	defer resp.Body.Close()

	result, err := decode(resp)
	if err != nil {
		return nil, err
	}

	var raw []apiUpdate
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode updates: %v", ErrNotOK, err)
	}

	updates := make([]domain.ChatUpdate, 0, len(raw))
	for _, u := range raw {
		updates = append(updates, domain.ChatUpdate{
			ID:            u.UpdateID,
			Message:       u.Message.toDomain(),
			ChannelPost:   u.ChannelPost.toDomain(),
			EditedMessage: u.EditedMessage.toDomain(),
		})
	}
	return updates, nil
}

func (m *apiMessage) toDomain() *domain.ChatMessage {
	if m == nil {
		return nil
	}
	title := m.Chat.Title
	if title == "" {
		title = m.Chat.FirstName
	}
	if title == "" {
		title = m.Chat.Username
	}
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	return &domain.ChatMessage{
		ChatID:    m.Chat.ID,
		ChatTitle: title,
		Username:  m.Chat.Username,
		MessageID: m.MessageID,
		Date:      m.Date,
		Text:      text,
	}
}

// decode checks the HTTP status and the ok envelope and returns the raw result.
func decode(resp *http.Response) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotOK, resp.Status, err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("%w: %s: %s", ErrNotOK, resp.Status, envelope.Description)
	}
	return envelope.Result, nil
}

// redactToken keeps the bot token out of logged transport errors, which embed the URL.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}

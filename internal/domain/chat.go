package domain

import (
	"fmt"
	"strings"
	"time"
)

// ChatMessage is a messaging-backend message reduced to what the pipeline reads.
type ChatMessage struct {
	ChatID    int64
	ChatTitle string
	Username  string
	MessageID int64
	Date      int64
	Text      string
}

// ChatUpdate is one entry of a getUpdates batch. At most one payload is
// expected to be set, but the priority order below is applied regardless.
type ChatUpdate struct {
	ID            int64
	Message       *ChatMessage
	ChannelPost   *ChatMessage
	EditedMessage *ChatMessage
}

// Payload returns the first present payload: message, channel post, edited message.
func (u ChatUpdate) Payload() *ChatMessage {
	switch {
	case u.Message != nil:
		return u.Message
	case u.ChannelPost != nil:
		return u.ChannelPost
	default:
		return u.EditedMessage
	}
}

// RelevanceText is the haystack the keyword filter inspects for a message.
func (m ChatMessage) RelevanceText() string {
	return m.ChatTitle + " " + m.Username + " " + m.Text
}

// CanonicalURL synthesizes a per-message unique URL. Public channels get a
// t.me link; everything else an internal tg:// URI built from chat and message ids.
func (m ChatMessage) CanonicalURL() string {
	if m.Username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", m.Username, m.MessageID)
	}
	return fmt.Sprintf("tg://%d/%d", m.ChatID, m.MessageID)
}

// DisplayTitle is the title stored for chat-origin articles.
func (m ChatMessage) DisplayTitle() string {
	if t := strings.TrimSpace(m.ChatTitle); t != "" {
		return t
	}
	if m.Username != "" {
		return m.Username
	}
	return "Telegram"
}

// PublishedAt renders the message date as a UTC ISO-8601 string, falling back to now.
func (m ChatMessage) PublishedAt(now time.Time) string {
	ts := now.UTC()
	if m.Date > 0 {
		ts = time.Unix(m.Date, 0).UTC()
	}
	return ts.Format("2006-01-02T15:04:05")
}

// ToArticle builds the unclassified record for a message.
func (m ChatMessage) ToArticle(now time.Time) Article {
	return Article{
		URL:         m.CanonicalURL(),
		Source:      SourceTelegram,
		Title:       m.DisplayTitle(),
		PublishedAt: m.PublishedAt(now),
		Content:     m.Text,
	}
}

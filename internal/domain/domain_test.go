package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeywordSetMatches(t *testing.T) {
	t.Parallel()

	set := NewKeywordSet([]string{"Anonymous", "OpUnite", "  ", "opunite"})

	assert.Equal(t, []string{"anonymous", "opunite"}, set.folded)
	assert.True(t, set.Matches("ANONYMOUS claims new operation"))
	assert.True(t, set.Matches("the #opUnite campaign"))
	assert.False(t, set.Matches("quarterly earnings report"))
	assert.False(t, set.Matches(""))
	assert.False(t, NewKeywordSet(nil).Matches("anonymous"))
}

func TestIsRelevant(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRelevant("Hacktivism on the rise", []string{"hacktivism"}))
	assert.False(t, IsRelevant("Patch Tuesday roundup", []string{"hacktivism", "op russia"}))
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CategoryClaimedOperation, ParseCategory(" Claimed_Operation "))
	assert.Equal(t, CategoryOpinion, ParseCategory("opinion"))
	assert.Equal(t, CategoryOther, ParseCategory("breaking"))
	assert.Equal(t, CategoryOther, ParseCategory(""))
}

func TestClampConfidence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, ClampConfidence(1.7))
	assert.Equal(t, 0.0, ClampConfidence(-0.3))
	assert.Equal(t, 0.92, ClampConfidence(0.92))
	assert.Equal(t, 0.0, ClampConfidence(math.NaN()))
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "abc", TruncateRunes("abc", 10))
	assert.Equal(t, "", TruncateRunes("abc", 0))
}

func TestChatUpdatePayloadPriority(t *testing.T) {
	t.Parallel()

	msg := &ChatMessage{MessageID: 1}
	post := &ChatMessage{MessageID: 2}
	edited := &ChatMessage{MessageID: 3}

	assert.Same(t, msg, ChatUpdate{Message: msg, ChannelPost: post, EditedMessage: edited}.Payload())
	assert.Same(t, post, ChatUpdate{ChannelPost: post, EditedMessage: edited}.Payload())
	assert.Same(t, edited, ChatUpdate{EditedMessage: edited}.Payload())
	assert.Nil(t, ChatUpdate{ID: 9}.Payload())
}

func TestChatMessageCanonicalURL(t *testing.T) {
	t.Parallel()

	public := ChatMessage{ChatID: -100, Username: "opnews", MessageID: 42}
	assert.Equal(t, "https://t.me/opnews/42", public.CanonicalURL())

	first := ChatMessage{ChatID: -100123, MessageID: 7}
	second := ChatMessage{ChatID: -100123, MessageID: 8}
	assert.Equal(t, "tg://-100123/7", first.CanonicalURL())
	assert.NotEqual(t, first.CanonicalURL(), second.CanonicalURL())
}

func TestChatMessageToArticle(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	withDate := ChatMessage{ChatID: 5, MessageID: 1, Date: 1700000000, Text: "anonymous"}
	art := withDate.ToArticle(now)
	assert.Equal(t, "2023-11-14T22:13:20", art.PublishedAt)
	assert.Equal(t, SourceTelegram, art.Source)
	assert.Equal(t, "Telegram", art.Title)
	assert.Equal(t, "anonymous", art.Content)

	noDate := ChatMessage{ChatID: 5, MessageID: 2, Username: "feed"}
	art = noDate.ToArticle(now)
	assert.Equal(t, "2025-03-01T12:00:00", art.PublishedAt)
	assert.Equal(t, "feed", art.Title)
}

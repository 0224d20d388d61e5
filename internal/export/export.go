// Package export converts Telegram Desktop JSON exports into the message
// tables and media index read by the corpus package.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/edgard/telellmgram/internal/corpus"
	"github.com/edgard/telellmgram/internal/text"
)

// ErrUnknownChatType is returned when an export is neither a channel nor a group.
var ErrUnknownChatType = errors.New("unknown chat type")

const exportDateLayout = "2006-01-02T15:04:05"

// Chat is the subset of a Telegram export used for import.
type Chat struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Messages []Message `json:"messages"`
}

// Message is one exported message or service entry.
type Message struct {
	ID        int64       `json:"id"`
	Type      string      `json:"type"`
	Date      string      `json:"date"`
	From      string      `json:"from"`
	FromID    string      `json:"from_id"`
	Text      MessageText `json:"text"`
	Reactions []Reaction  `json:"reactions"`
	ReplyTo   int64       `json:"reply_to_message_id"`
}

// Reaction is an aggregated reaction on a message.
type Reaction struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
	Emoji string `json:"emoji"`
}

// MessageText is the flattened text of a message. Exports encode text either
// as a plain string or as an array of strings and formatted entities.
type MessageText string

// UnmarshalJSON implements json.Unmarshaler.
func (t *MessageText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = MessageText(s)
		return nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("unsupported text encoding: %w", err)
	}

	var sb strings.Builder
	for _, part := range parts {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			sb.WriteString(s)
			continue
		}
		var entity struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &entity); err != nil {
			return fmt.Errorf("unsupported text entity: %w", err)
		}
		sb.WriteString(entity.Text)
	}
	*t = MessageText(sb.String())
	return nil
}

// Decode reads a result.json export.
func Decode(r io.Reader) (*Chat, error) {
	var chat Chat
	if err := json.NewDecoder(r).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return &chat, nil
}

// DetectKind maps an export chat type such as "public_channel" or
// "private_supergroup" to a media kind.
func DetectKind(chatType string) (corpus.MediaKind, error) {
	switch {
	case strings.Contains(chatType, "channel"):
		return corpus.Channel, nil
	case strings.Contains(chatType, "group"):
		return corpus.Group, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChatType, chatType)
	}
}

// FormatReactions renders emoji reactions as comma-separated "emoji:count"
// pairs. Custom and paid reactions are skipped.
func FormatReactions(reactions []Reaction) string {
	pairs := make([]string, 0, len(reactions))
	for _, r := range reactions {
		if r.Type != "emoji" {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s:%d", r.Emoji, r.Count))
	}
	return strings.Join(pairs, ",")
}

// Rows converts the regular messages of chat into table rows. Service
// entries are skipped; sender fields are kept for groups only.
func Rows(chat *Chat, kind corpus.MediaKind) []corpus.Row {
	rows := make([]corpus.Row, 0, len(chat.Messages))
	for _, msg := range chat.Messages {
		if msg.Type != "message" {
			continue
		}

		raw := string(msg.Text)
		row := corpus.Row{
			MessageRecord: corpus.MessageRecord{
				ID:        msg.ID,
				Text:      text.Normalize(raw),
				Reactions: FormatReactions(msg.Reactions),
			},
			RawText:  raw,
			Links:    text.ExtractLinks(raw),
			Hashtags: text.ExtractHashtags(raw),
		}
		if ts, err := time.Parse(exportDateLayout, msg.Date); err == nil {
			row.Timestamp = ts
		}
		if kind == corpus.Group {
			row.SenderID = msg.FromID
			row.SenderName = msg.From
			row.ReplyToID = msg.ReplyTo
		}

		rows = append(rows, row)
	}
	return rows
}

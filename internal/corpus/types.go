// Package corpus holds the message store: the media index, the per-media
// message tables and the date and sender filters applied to them.
package corpus

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownMedia is returned when a media id is not present in the index.
	ErrUnknownMedia = errors.New("unknown media")
	// ErrInvalidDateRange is returned when a range bound cannot be parsed or
	// the start falls after the end.
	ErrInvalidDateRange = errors.New("invalid date range")
)

// MediaKind distinguishes channels from groups.
type MediaKind string

const (
	Channel MediaKind = "channel"
	Group   MediaKind = "group"
)

// ParseMediaKind accepts "channel" or "group" in any case.
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Channel):
		return Channel, nil
	case string(Group):
		return Group, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}

// Suffix is the one-letter suffix used in table file names ("c" or "g").
func (k MediaKind) Suffix() string {
	if k == Group {
		return "g"
	}
	return "c"
}

// MediaDescriptor describes one exported channel or group.
type MediaDescriptor struct {
	ID     int64
	Name   string
	Kind   MediaKind
	Source string // path of the message table
}

// MessageRecord is one message of a media table. Records are never mutated
// after loading.
type MessageRecord struct {
	ID         int64
	Text       string    // normalized text, may be empty
	Timestamp  time.Time // zero when the row had no parseable date
	Reactions  string    // opaque "emoji:count" pairs
	SenderID   string    // groups only
	SenderName string    // groups only
	ReplyToID  int64     // 0 when the message is not a reply
}

// HasTimestamp reports whether the record carries a parseable date.
func (r MessageRecord) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}

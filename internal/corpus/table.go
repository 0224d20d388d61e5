package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Message table columns.
const (
	colMessageID   = "message_id"
	colRawText     = "raw_text"
	colCleanedText = "cleaned_text"
	colSenderName  = "sender_name"
	colSenderID    = "sender_id"
	colTime        = "time"
	colDate        = "date"
	colReactions   = "reactions"
	colLinks       = "links"
	colHashtags    = "hashtags"
	colReplyTo     = "reply_to_message_id"

	timeLayout = "15:04:05"
)

// Row is a message table row as written by the importer. Only the embedded
// record is read back.
type Row struct {
	MessageRecord
	RawText  string
	Links    []string
	Hashtags []string
}

func tableHeader(kind MediaKind) []string {
	if kind == Group {
		return []string{colMessageID, colRawText, colCleanedText, colSenderName, colSenderID,
			colTime, colDate, colReactions, colLinks, colHashtags, colReplyTo}
	}
	return []string{colMessageID, colRawText, colCleanedText, colTime, colDate, colReactions, colLinks, colHashtags}
}

// WriteTable encodes rows as a message table for the given media kind.
func WriteTable(w io.Writer, kind MediaKind, rows []Row) error {
	cw := csv.NewWriter(w)
	header := tableHeader(kind)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		var date, clock string
		if r.HasTimestamp() {
			date = r.Timestamp.Format(DateLayout)
			clock = r.Timestamp.Format(timeLayout)
		}
		var replyTo string
		if r.ReplyToID != 0 {
			replyTo = strconv.FormatInt(r.ReplyToID, 10)
		}

		values := map[string]string{
			colMessageID:   strconv.FormatInt(r.ID, 10),
			colRawText:     r.RawText,
			colCleanedText: r.Text,
			colSenderName:  r.SenderName,
			colSenderID:    r.SenderID,
			colTime:        clock,
			colDate:        date,
			colReactions:   r.Reactions,
			colLinks:       strings.Join(r.Links, ","),
			colHashtags:    strings.Join(r.Hashtags, ","),
			colReplyTo:     replyTo,
		}
		out := make([]string, len(header))
		for i, col := range header {
			out[i] = values[col]
		}
		if err := cw.Write(out); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadTable decodes a message table. Columns are located by header name;
// only message_id and cleaned_text are required. A row whose date cannot be
// parsed keeps a zero timestamp.
func ReadTable(r io.Reader) ([]MessageRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	cols := columnIndex(header)
	for _, name := range []string{colMessageID, colCleanedText} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var records []MessageRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		id, err := parseID(field(row, cols, colMessageID))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid message_id: %w", line, err)
		}
		replyTo, err := parseID(field(row, cols, colReplyTo))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid reply_to_message_id: %w", line, err)
		}

		records = append(records, MessageRecord{
			ID:         id,
			Text:       field(row, cols, colCleanedText),
			Timestamp:  parseRowTimestamp(field(row, cols, colDate), field(row, cols, colTime)),
			Reactions:  field(row, cols, colReactions),
			SenderID:   field(row, cols, colSenderID),
			SenderName: field(row, cols, colSenderName),
			ReplyToID:  replyTo,
		})
	}

	return records, nil
}

// parseRowTimestamp is strict: unlike ParseDate it never clamps the day.
func parseRowTimestamp(date, clock string) time.Time {
	if date == "" {
		return time.Time{}
	}
	if clock != "" {
		if t, err := time.Parse(DateLayout+" "+timeLayout, date+" "+clock); err == nil {
			return t
		}
	}
	for _, layout := range []string{DateLayout, "02/01/2006"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t
		}
	}
	return time.Time{}
}

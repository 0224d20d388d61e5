package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/edgard/telellmgram/internal/analysis"
)

var errUsage = errors.New("invalid command arguments")

// usages are the argument synopses shown when a command is malformed.
var usages = map[analysis.Variant]string{
	analysis.SingleMedia: "/analyze <media_id> [dd/mm/yy dd/mm/yy] <question>",
	analysis.Topic:       "/topic <media_id,media_id,...> <question>",
	analysis.TimeWindow:  "/window <media_id> <dd/mm/yy> <dd/mm/yy> <question>",
	analysis.Trend:       "/trend <media_id> <dd/mm/yy> <dd/mm/yy>",
	analysis.Individual:  "/user <media_id> <sender_id> <question>",
}

// parseArgs turns the text of a command message into a request for v.
// The question is everything after the positional arguments, kept as typed.
func parseArgs(v analysis.Variant, text string) (analysis.Request, error) {
	var req analysis.Request

	_, rest := nextField(text) // the command itself
	idField, rest := nextField(rest)
	ids, err := parseMediaIDs(idField)
	if err != nil {
		return req, err
	}
	if v != analysis.Topic && len(ids) != 1 {
		return req, fmt.Errorf("%w: expected one media id", errUsage)
	}
	req.MediaIDs = ids

	switch v {
	case analysis.SingleMedia:
		if first, after := nextField(rest); looksLikeDate(first) {
			second, remainder := nextField(after)
			if !looksLikeDate(second) {
				return req, fmt.Errorf("%w: a date range needs two dates", errUsage)
			}
			req.Start, req.End, rest = first, second, remainder
		}
	case analysis.TimeWindow, analysis.Trend:
		var start, end string
		start, rest = nextField(rest)
		end, rest = nextField(rest)
		if !looksLikeDate(start) || !looksLikeDate(end) {
			return req, fmt.Errorf("%w: expected a start and an end date", errUsage)
		}
		req.Start, req.End = start, end
	case analysis.Individual:
		req.SenderID, rest = nextField(rest)
		if req.SenderID == "" {
			return req, fmt.Errorf("%w: missing sender id", errUsage)
		}
	}

	req.Question = strings.TrimSpace(rest)
	if v != analysis.Trend && req.Question == "" {
		return req, fmt.Errorf("%w: missing question", errUsage)
	}
	return req, nil
}

// nextField splits off the first whitespace separated field of s.
func nextField(s string) (field, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

func looksLikeDate(s string) bool {
	return strings.Count(s, "/") == 2
}

func parseMediaIDs(s string) ([]int64, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: missing media id", errUsage)
	}

	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: media id %q is not a number", errUsage, part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: missing media id", errUsage)
	}
	return ids, nil
}

// Package analysis configures the chunk builder and the map-reduce
// orchestrator for each kind of analysis a caller can request.
package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/edgard/telellmgram/internal/corpus"
	"github.com/edgard/telellmgram/internal/pipeline"
)

// Variant selects an analysis policy.
type Variant string

const (
	SingleMedia Variant = "single"
	Topic       Variant = "topic"
	TimeWindow  Variant = "window"
	Trend       Variant = "trend"
	Individual  Variant = "user"
)

// Variants lists every variant in display order.
var Variants = []Variant{SingleMedia, Topic, TimeWindow, Trend, Individual}

var (
	// ErrEmptyCorpus is returned when filtering leaves nothing to analyze.
	// No model call has been made in that case.
	ErrEmptyCorpus = errors.New("no data to analyze")
	// ErrInvalidRequest is returned for requests missing a required field.
	ErrInvalidRequest = errors.New("invalid analysis request")
)

// ParseVariant accepts a variant name.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Variants {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown variant %q", ErrInvalidRequest, s)
}

// Request is a caller's analysis request. Start and End are dd/mm/yy or
// dd/mm/yyyy; an empty bound is open.
type Request struct {
	Question string
	MediaIDs []int64
	Start    string
	End      string
	Keywords []string
	SenderID string
}

// Report is a finished analysis.
type Report struct {
	RunID    uuid.UUID
	Variant  Variant
	Text     string
	Media    []corpus.MediaDescriptor
	Range    corpus.DateRange
	Keywords []string
	// KeywordFallback is set when derived keywords came from the question
	// because the model call failed.
	KeywordFallback bool
	Records         int
	Chunks          int
	Mapped          int
	Degraded        int
}

// Explain renders err as a reason suitable for end users.
func Explain(err error) string {
	var rerr *pipeline.ReductionError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCorpus):
		return "no messages matched the request, nothing was analyzed"
	case errors.Is(err, corpus.ErrUnknownMedia):
		return "the requested media is not in the corpus index (" + err.Error() + ")"
	case errors.Is(err, corpus.ErrInvalidDateRange):
		return "the date range is invalid, use dd/mm/yy or dd/mm/yyyy (" + err.Error() + ")"
	case errors.Is(err, ErrInvalidRequest):
		return err.Error()
	case errors.As(err, &rerr):
		return fmt.Sprintf("the final summarization failed after %d partial analyses: %v", len(rerr.Partials), rerr.Reason)
	case pipeline.IsCancellation(err):
		return "the analysis was cancelled or ran out of time"
	default:
		return "the analysis failed: " + err.Error()
	}
}

func (r Request) validate(v Variant) error {
	if len(r.MediaIDs) == 0 {
		return fmt.Errorf("%w: a media id is required", ErrInvalidRequest)
	}
	if v != Topic && len(r.MediaIDs) > 1 {
		return fmt.Errorf("%w: %s analysis takes exactly one media id", ErrInvalidRequest, v)
	}
	if v != Trend && strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("%w: a question is required", ErrInvalidRequest)
	}
	if (v == TimeWindow || v == Trend) && (strings.TrimSpace(r.Start) == "" || strings.TrimSpace(r.End) == "") {
		return fmt.Errorf("%w: %s analysis requires a start and an end date", ErrInvalidRequest, v)
	}
	if v == Individual && strings.TrimSpace(r.SenderID) == "" {
		return fmt.Errorf("%w: a sender id is required", ErrInvalidRequest)
	}
	return nil
}

// Summary is a one-line description of the request for logs and the audit
// database.
func (r Request) Summary(v Variant) string {
	ids := make([]string, len(r.MediaIDs))
	for i, id := range r.MediaIDs {
		ids[i] = fmt.Sprint(id)
	}
	parts := []string{"variant=" + string(v), "media=" + strings.Join(ids, ",")}
	if r.Start != "" || r.End != "" {
		parts = append(parts, "range="+r.Start+".."+r.End)
	}
	if len(r.Keywords) > 0 {
		parts = append(parts, "keywords="+strings.Join(r.Keywords, ","))
	}
	if r.SenderID != "" {
		parts = append(parts, "sender="+r.SenderID)
	}
	if r.Question != "" {
		parts = append(parts, "question="+r.Question)
	}
	return strings.Join(parts, " ")
}

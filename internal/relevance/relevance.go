// Package relevance ranks message records against a keyword set and derives
// keywords from a question when none are supplied.
package relevance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/edgard/telellmgram/internal/corpus"
	"github.com/edgard/telellmgram/internal/llm"
)

// MaxScore caps the score of a single text.
const MaxScore = 5

// Score is the number of distinct lower-cased whitespace tokens of text that
// appear in keywords, capped at MaxScore.
func Score(text string, keywords []string) int {
	return scoreSet(text, keywordSet(keywords))
}

func scoreSet(text string, set map[string]struct{}) int {
	if len(set) == 0 || strings.TrimSpace(text) == "" {
		return 0
	}

	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if _, ok := set[tok]; !ok {
			continue
		}
		seen[tok] = struct{}{}
		if len(seen) >= MaxScore {
			return MaxScore
		}
	}
	return len(seen)
}

func keywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			set[kw] = struct{}{}
		}
	}
	return set
}

// Scored is a record with its relevance score.
type Scored struct {
	corpus.MessageRecord
	Score int
}

// SelectTopN returns at most n records with a positive score, ordered by
// descending score. Ties keep their original order.
func SelectTopN(records []corpus.MessageRecord, keywords []string, n int) []Scored {
	if n <= 0 {
		return nil
	}

	set := keywordSet(keywords)
	scored := make([]Scored, 0)
	for _, r := range records {
		if s := scoreSet(r.Text, set); s > 0 {
			scored = append(scored, Scored{MessageRecord: r, Score: s})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

// Records strips the scores from s.
func Records(s []Scored) []corpus.MessageRecord {
	out := make([]corpus.MessageRecord, len(s))
	for i := range s {
		out[i] = s[i].MessageRecord
	}
	return out
}

const keywordPrompt = "I want to perform an analysis on telegram media. Please tell me the %d best keywords to match the user prompt for keyword search inside the documents.\n\n" +
	"**User prompt : %s**\n\n" +
	"The output format must be like:\n%s\n\n" +
	"Do not output any extra text. Just %d %s keywords for this prompt to search for."

// KeywordPrompt builds the keyword derivation prompt.
func KeywordPrompt(question string, count int, language string) string {
	placeholders := make([]string, count)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("kw_%d", i+1)
	}
	return fmt.Sprintf(keywordPrompt, count, question, strings.Join(placeholders, ","), count, language)
}

// Derivation is the outcome of DeriveKeywords.
type Derivation struct {
	Keywords []string
	Prompt   string
	Response llm.Result
	// Fallback is set when the model call failed and the question tokens
	// were used instead.
	Fallback bool
}

// Deriver proposes keywords with one LLM call.
type Deriver struct {
	completer llm.Completer
	language  string
	log       *slog.Logger
}

// NewDeriver creates a keyword deriver answering in language.
func NewDeriver(completer llm.Completer, language string, log *slog.Logger) *Deriver {
	return &Deriver{completer: completer, language: language, log: log.With("component", "keyword_deriver")}
}

// DeriveKeywords asks the model for count comma-separated keywords. A failed
// call, or a reply with no usable keyword, falls back to the distinct tokens
// of the question.
func (d *Deriver) DeriveKeywords(ctx context.Context, question string, count int) Derivation {
	prompt := KeywordPrompt(question, count, d.language)
	res := d.completer.Complete(llm.WithStage(ctx, "keywords"), prompt)

	out := Derivation{Prompt: prompt, Response: res}
	if res.OK() {
		out.Keywords = ParseKeywords(res.Text)
	}
	if len(out.Keywords) == 0 {
		out.Keywords = questionTokens(question)
		out.Fallback = true
		d.log.WarnContext(ctx, "Keyword derivation degraded, using question tokens", "error", res.Err, "keywords", len(out.Keywords))
		return out
	}

	d.log.InfoContext(ctx, "Derived keywords", "keywords", strings.Join(out.Keywords, ","))
	return out
}

// ParseKeywords splits a model reply on Latin and Arabic commas and newlines.
func ParseKeywords(reply string) []string {
	fields := strings.FieldsFunc(reply, func(r rune) bool {
		return r == ',' || r == '،' || r == '\n'
	})

	var out []string
	seen := make(map[string]struct{})
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func questionTokens(question string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(question)) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

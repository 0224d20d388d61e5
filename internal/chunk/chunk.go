// Package chunk partitions an ordered record sequence into prompt-sized
// chunks. Each chunk carries the full preamble and closing directive so it
// can be sent to the model on its own.
package chunk

import (
	"strconv"
	"strings"

	"github.com/edgard/telellmgram/internal/corpus"
	"github.com/edgard/telellmgram/internal/text"
)

// DefaultMaxChars is the reference chunk budget in characters.
const DefaultMaxChars = 200_000

const (
	fieldSep   = "--"
	sectionSep = "\n\n"
)

// Chunk is one sealed prompt.
type Chunk struct {
	Records []corpus.MessageRecord
	Text    string
	// Oversized marks a chunk holding a single record whose line alone
	// exceeds the budget.
	Oversized bool
}

// Len is the serialized length in characters.
func (c Chunk) Len() int {
	return runeLen(c.Text)
}

// LineFunc renders one record inside a chunk.
type LineFunc func(corpus.MessageRecord) string

// Line renders a record as id--text--reactions on a single line.
func Line(r corpus.MessageRecord) string {
	return strconv.FormatInt(r.ID, 10) + fieldSep + singleLine(r.Text) + fieldSep + singleLine(r.Reactions)
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " ")
}

// Builder assembles chunks. The zero value of MaxChars means no budget.
type Builder struct {
	Preamble string
	Closing  string
	MaxChars int
	// MinLetters excludes records with fewer script letters.
	MinLetters int
	Line       LineFunc
}

// Eligible reports whether r passes the letter floor.
func (b Builder) Eligible(r corpus.MessageRecord) bool {
	if strings.TrimSpace(r.Text) == "" {
		return false
	}
	return text.CountScriptLetters(r.Text) >= b.MinLetters
}

// Build walks records in order and returns the sealed chunks. A record that
// would push a non-empty chunk over MaxChars starts a new chunk. A record
// too large for any chunk is kept alone in an Oversized chunk. No eligible
// record means no chunk.
func (b Builder) Build(records []corpus.MessageRecord) []Chunk {
	line := b.Line
	if line == nil {
		line = Line
	}

	overhead := runeLen(b.Preamble) + runeLen(b.Closing) + 2*runeLen(sectionSep)

	var (
		out     []Chunk
		current []corpus.MessageRecord
		lines   []string
		bodyLen int
	)

	seal := func() {
		if len(current) == 0 {
			return
		}
		c := Chunk{
			Records: current,
			Text:    b.Preamble + sectionSep + strings.Join(lines, "\n") + sectionSep + b.Closing,
		}
		c.Oversized = b.MaxChars > 0 && len(current) == 1 && c.Len() > b.MaxChars
		out = append(out, c)
		current, lines, bodyLen = nil, nil, 0
	}

	for _, r := range records {
		if !b.Eligible(r) {
			continue
		}

		l := line(r)
		n := runeLen(l)
		grown := bodyLen + n
		if len(current) > 0 {
			grown++ // newline
		}

		if len(current) > 0 && b.MaxChars > 0 && overhead+grown > b.MaxChars {
			seal()
			grown = n
		}

		current = append(current, r)
		lines = append(lines, l)
		bodyLen = grown
	}
	seal()

	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}

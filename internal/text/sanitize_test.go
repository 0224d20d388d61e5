package text_test

import (
	"reflect"
	"testing"

	"github.com/edgard/telellmgram/internal/text"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty input", input: "", expected: ""},
		{name: "Whitespace only", input: " \n\t\n ", expected: ""},
		{name: "Arabic yeh", input: "سلام دنيا", expected: "سلام دنیا"},
		{name: "Arabic kaf", input: "كتاب", expected: "کتاب"},
		{name: "Hamza dropped", input: "جزء", expected: "جز"},
		{name: "Question mark", input: "چطوری?", expected: "چطوری؟"},
		{name: "Integer padding", input: "قیمت100تومان", expected: "قیمت 100 تومان"},
		{name: "Decimal padding", input: "نرخ2.5درصد", expected: "نرخ 2.5 درصد"},
		{name: "Persian digits padding", input: "سال۱۴۰۲بود", expected: "سال ۱۴۰۲ بود"},
		{name: "Abbreviation padding", input: "پیامبر(ص)گفت", expected: "پیامبر (ص) گفت"},
		{name: "Newline runs collapsed", input: "الف\n\n\nب", expected: "الف\nب"},
		{name: "CRLF line endings", input: "الف\r\n\r\nب", expected: "الف\nب"},
		{name: "Link removed", input: "سلام https://t.me/abc دوستان", expected: "سلام دوستان"},
		{name: "Hashtag removed", input: "خبر #فوری امروز", expected: "خبر امروز"},
		{name: "Handle removed", input: "عضو شوید @channel_name", expected: "عضو شوید"},
		{name: "Zero width space", input: "الف\u200bب", expected: "الف ب"},
		{name: "ZWNJ preserved", input: "می\u200cروم", expected: "می\u200cروم"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := text.Normalize(tt.input)
			if result != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"قیمت100تومان و نرخ2.5",
		"پیامبر(ص)گفت\n\n\nسلام دنيا",
		"خبر #فوری https://example.com/x",
	}

	for _, input := range inputs {
		once := text.Normalize(input)
		if twice := text.Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "No links", input: "متن ساده", expected: nil},
		{
			name:     "Mixed links and handles",
			input:    "see https://example.com/x and @user and www.site.ir",
			expected: []string{"https://example.com/x", "@user", "www.site.ir"},
		},
		{name: "Telegram link", input: "join t.me/somechannel now", expected: []string{"t.me/somechannel"}},
		{name: "Bare domain", input: "visit example.org today", expected: []string{"example.org"}},
		{name: "Duplicates removed", input: "@a @a @b", expected: []string{"@a", "@b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := text.ExtractLinks(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ExtractLinks(%q) = %#v, want %#v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestExtractHashtags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "None", input: "no tags here", expected: nil},
		{name: "Latin", input: "#a #b #a", expected: []string{"#a", "#b"}},
		{name: "Persian with underscore", input: "خبر #خبر_فوری", expected: []string{"#خبر_فوری"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := text.ExtractHashtags(tt.input)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("ExtractHashtags(%q) = %#v, want %#v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestStrip(t *testing.T) {
	t.Parallel()

	if got := text.Strip("abc abcd", []string{"abc", "abcd"}); got != " " {
		t.Errorf("Strip() = %q, want %q", got, " ")
	}
	if got := text.Strip("unchanged", nil); got != "unchanged" {
		t.Errorf("Strip() with no tokens = %q", got)
	}
}

func TestCountScriptLetters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected int
	}{
		{input: "", expected: 0},
		{input: "hello", expected: 0},
		{input: "سلام", expected: 4},
		{input: "سلام 123 hello", expected: 4},
		{input: "دنيا", expected: 3}, // Arabic yeh is not in the Persian alphabet
	}

	for _, tt := range tests {
		if got := text.CountScriptLetters(tt.input); got != tt.expected {
			t.Errorf("CountScriptLetters(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

// Package text provides normalization of Telegram message text and the
// extractors used to find links and hashtags before they are stripped.
package text

import (
	"regexp"
	"strings"
)

// PersianLetters is the alphabet counted by CountScriptLetters.
const PersianLetters = "ابپتثجچحخدذرزژسشصضطظعغفقکگلمنوهی"

// Regular expression patterns and character replacers used for normalization.
var (
	// linkRegex matches URL-like tokens (scheme, www, t.me and common TLD suffixes)
	// and handle-like tokens such as "@channel".
	linkRegex = regexp.MustCompile(
		`(?:(?:https?://|www\.)\S+|t\.me/\S+|\S+\.com|\S+\.org|\S+\.net|\S+\.io|\S+\.co|@[\p{L}\p{N}_]+)`)

	// hashtagRegex matches "#" followed by letters, digits or underscores in any script.
	hashtagRegex = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

	// numberRegex matches integers and decimals in any script, including the
	// Persian decimal separator U+066B.
	numberRegex = regexp.MustCompile(`\p{Nd}+(?:[.٫]\p{Nd}+)?`)

	// abbrevRegex matches short parenthetical abbreviations like "(ص)" or "(ع)".
	abbrevRegex = regexp.MustCompile(`\([^\n()]{1,2}\)`)

	// controlCharsRegex matches ASCII control characters (including DEL 0x7F).
	controlCharsRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	// alphabetReplacer maps Arabic-script letters to their Persian equivalents.
	alphabetReplacer = strings.NewReplacer(
		"ي", "ی",
		"ك", "ک",
		"ة", "ه",
		"ۀ", "ه",
		"ى", "ی",
		"ؤ", "و",
		"إ", "ا",
		"أ", "ا",
		"ء", "", // hamza is dropped
		"?", "؟",
	)

	// unicodeReplacer removes invisible formatting characters and converts exotic
	// spaces. ZWNJ (U+200C) is kept: it is part of Persian orthography.
	unicodeReplacer = strings.NewReplacer(
		"\u2060", "", // Word Joiner
		"\uFEFF", "", // Byte Order Mark
		"\u00AD", "", // Soft Hyphen
		"\u200E", "", // Left-to-Right Mark
		"\u200F", "", // Right-to-Left Mark
		"\u2061", "",
		"\u2062", "",
		"\u2063", "",
		"\u2064", "",
		"\u2028", "\n", // Line Separator
		"\u2029", "\n", // Paragraph Separator
		"\u200B", " ", // Zero Width Space
		"\u205F", " ",
		"\u2009", " ", // Thin Space
		"\u200A", " ", // Hair Space
		"\u202F", " ", // Narrow No-Break Space
		"\u3000", " ", // Ideographic Space
		"\u00A0", " ", // Non-breaking Space
	)
)

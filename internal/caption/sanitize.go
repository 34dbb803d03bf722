package caption

import (
	"regexp"
	"strings"

	"github.com/ZacxDev/video-captioner/pkg/types"
)

// LineBreak is the token used between wrapped lines. drawtext breaks lines
// on a literal line feed, so no escaping is involved.
const LineBreak = "\n"

var (
	// drawtext expands '%{...}' sequences and backslash escapes in its text.
	expansionEscaper = strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
	)
	// Filter options are split on ':' and may be quoted with '.
	optionEscaper = strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
	)

	lineBreaks = regexp.MustCompile(`(\r\n|\r|\n)+`)
)

// whitespace is what ffmpeg's tokenizer strips from both ends of a value.
const whitespace = " \t\n\r"

// Escape makes raw text safe as the value of a text-draw node's text
// option. Backslash and percent are escaped for drawtext's own expansion,
// then backslash, colon and single quote are escaped for the option parser.
// Line breaks are handled per mode, see Normalize.
func Escape(raw string, mode types.NewlineMode) string {
	return EscapeOption(EscapeExpansion(Normalize(raw, mode)))
}

// Normalize rewrites line breaks (\r\n, \r, \n). In collapse mode each run
// of line breaks becomes a single space; otherwise every break becomes
// LineBreak. Other whitespace is left alone so masks keep their columns.
func Normalize(raw string, mode types.NewlineMode) string {
	if mode == types.NewlineCollapse {
		return lineBreaks.ReplaceAllString(raw, " ")
	}
	text := strings.ReplaceAll(raw, "\r\n", LineBreak)
	return strings.ReplaceAll(text, "\r", LineBreak)
}

// EscapeExpansion escapes text that drawtext expands, inline or read from a
// textfile.
func EscapeExpansion(text string) string {
	return expansionEscaper.Replace(text)
}

// EscapeOption escapes s as a single filter option value. Leading and
// trailing whitespace is backslash-escaped so the option parser keeps it.
func EscapeOption(s string) string {
	s = optionEscaper.Replace(s)

	body := strings.TrimLeft(s, whitespace)
	lead := s[:len(s)-len(body)]
	trimmed := strings.TrimRight(body, whitespace)
	trail := body[len(trimmed):]

	return escapeEach(lead) + trimmed + escapeEach(trail)
}

func escapeEach(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		b.WriteByte('\\')
		b.WriteByte(s[i])
	}
	return b.String()
}

// Wrap greedily packs words into lines of at most maxCharsPerLine
// characters and joins them with LineBreak. A word longer than the limit is
// placed alone on its own line and never split.
func Wrap(text string, maxCharsPerLine int) string {
	return strings.Join(WrapLines(strings.Fields(text), maxCharsPerLine), LineBreak)
}

// WrapLines is Wrap over pre-split words, returning the lines as word groups
// joined by single spaces.
func WrapLines(words []string, maxCharsPerLine int) []string {
	groups := wrapGroups(words, maxCharsPerLine)
	lines := make([]string, len(groups))
	for i, g := range groups {
		lines[i] = strings.Join(g, " ")
	}
	return lines
}

func wrapGroups(words []string, maxCharsPerLine int) [][]string {
	var (
		groups  [][]string
		current []string
		length  int
	)
	for _, word := range words {
		n := runeLen(word)
		if len(current) > 0 && length+1+n <= maxCharsPerLine {
			current = append(current, word)
			length += 1 + n
			continue
		}
		if len(current) > 0 {
			groups = append(groups, current)
		}
		current = []string{word}
		length = n
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func runeLen(s string) int {
	return len([]rune(s))
}

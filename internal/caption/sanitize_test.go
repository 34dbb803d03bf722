package caption

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/ZacxDev/video-captioner/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// optionValue reads an option value the way ffmpeg's av_get_token does
// with ':' as the terminator, returning the value and the unread rest.
func optionValue(buf string) (string, string) {
	buf = strings.TrimLeft(buf, whitespace)
	var out []byte
	end := 0
	i := 0
	for i < len(buf) && buf[i] != ':' {
		c := buf[i]
		i++
		switch {
		case c == '\\' && i < len(buf):
			out = append(out, buf[i])
			i++
			end = len(out)
		case c == '\'':
			for i < len(buf) && buf[i] != '\'' {
				out = append(out, buf[i])
				i++
			}
			if i < len(buf) {
				i++
				end = len(out)
			}
		default:
			out = append(out, c)
		}
	}
	for len(out) > end && strings.IndexByte(whitespace, out[len(out)-1]) >= 0 {
		out = out[:len(out)-1]
	}
	return string(out), buf[i:]
}

// expand renders text the way drawtext does when no '%{...}' sequence is
// present. A '%' that survives is reported.
func expand(s string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case s[i] == '%':
			return "", false
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), true
}

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		mode types.NewlineMode
		want string
	}{
		{"plain", "Hello world", types.NewlineCollapse, "Hello world"},
		{"colon", "Whatsapp: +383", types.NewlineCollapse, `Whatsapp\: +383`},
		{"quote", "it's", types.NewlineCollapse, `it\'s`},
		{"percent", "50% off", types.NewlineCollapse, `50\\% off`},
		{"backslash", `a\b`, types.NewlineCollapse, `a\\\\b`},
		{"all four", `\:'%`, types.NewlineCollapse, `\\\\\:\'\\%`},
		{"collapse newline", "first line\nsecond", types.NewlineCollapse, "first line second"},
		{"collapse crlf", "first\r\nsecond", types.NewlineCollapse, "first second"},
		{"collapse blank lines", "a\n\nb", types.NewlineCollapse, "a b"},
		{"collapse mixed breaks", "a\r\n\r\n\rb", types.NewlineCollapse, "a b"},
		{"keep newline", "first line\nsecond", types.NewlineLineBreak, "first line\nsecond"},
		{"normalise crlf", "a\r\nb\rc", types.NewlineLineBreak, "a\nb\nc"},
		{"mask padding", "  ab ", types.NewlineLineBreak, `\ \ ab\ `},
		{"empty", "", types.NewlineLineBreak, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.raw, tt.mode))
		})
	}
}

func TestNormalizeKeepsColumns(t *testing.T) {
	mask := Mask([]string{"one", "two", "three"}, 1)
	assert.Equal(t, mask, Normalize(mask, types.NewlineCollapse))
	assert.Equal(t, "    two      ", mask)

	// Spaces around a break are kept; only the break itself is replaced.
	assert.Equal(t, "a   b", Normalize("a \n b", types.NewlineCollapse))
}

func TestEscapeExpansion(t *testing.T) {
	assert.Equal(t, `100\% \\o/`, EscapeExpansion(`100% \o/`))
	assert.Equal(t, "it's: fine", EscapeExpansion("it's: fine"))
}

func TestEscapeRendersVerbatim(t *testing.T) {
	alphabet := []rune(`ab :'%\` + "\n\r\t" + `,;[]={}é`)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		n := rng.Intn(24)
		raw := make([]rune, n)
		for j := range raw {
			raw[j] = alphabet[rng.Intn(len(alphabet))]
		}
		for _, mode := range []types.NewlineMode{types.NewlineCollapse, types.NewlineLineBreak} {
			out := Escape(string(raw), mode)

			value, rest := optionValue(out)
			require.Empty(t, rest, "raw=%q mode=%s out=%q", string(raw), mode, out)

			rendered, ok := expand(value)
			require.True(t, ok, "raw=%q mode=%s out=%q", string(raw), mode, out)
			assert.Equal(t, Normalize(string(raw), mode), rendered, "raw=%q mode=%s out=%q", string(raw), mode, out)

			if mode == types.NewlineCollapse {
				assert.NotContains(t, out, "\n")
			}
			assert.NotContains(t, out, "\r")
		}
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"fits on one line", "Hello world foo", 24, "Hello world foo"},
		{"exact limit", "abc def", 7, "abc def"},
		{"greedy break", "the quick brown fox jumps", 10, "the quick\nbrown fox\njumps"},
		{"long word alone", "a supercalifragilistic word", 8, "a\nsupercalifragilistic\nword"},
		{"long first word", "supercalifragilistic a", 5, "supercalifragilistic\na"},
		{"collapses whitespace", "  spaced\t\tout  ", 20, "spaced out"},
		{"empty", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Wrap(tt.text, tt.max))
		})
	}
}

func TestWrapThenEscapeCollapse(t *testing.T) {
	wrapped := Wrap("the quick brown fox", 9)
	assert.Equal(t, "the quick\nbrown fox", wrapped)
	assert.Equal(t, "the quick brown fox", Escape(wrapped, types.NewlineCollapse))
}

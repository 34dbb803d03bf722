package filtergraph

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The helpers below read a graph the way libavfilter does: the graph parser
// splits filters and strips one level of quoting, the option parser splits
// key=value pairs and strips another, and drawtext expands what is left.

const whitespace = " \n\t\r"

// getToken follows av_get_token. Leading whitespace is skipped, a backslash
// escapes the next byte, single quotes copy their content literally, and
// trailing whitespace that was neither escaped nor quoted is dropped. It
// returns the token and the unread rest, which starts at the terminator.
func getToken(buf, term string) (string, string) {
	buf = strings.TrimLeft(buf, whitespace)
	var out []byte
	end := 0
	i := 0
	for i < len(buf) && strings.IndexByte(term, buf[i]) < 0 {
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

type parsedFilter struct {
	name    string
	options map[string]string
}

func parseGraph(t *testing.T, graph string) []parsedFilter {
	t.Helper()
	var filters []parsedFilter
	rest := graph
	for {
		rest = skipLabels(t, rest)

		var name, args string
		name, rest = getToken(rest, "=,;[")
		require.NotEmpty(t, name, "missing filter name in %q", graph)
		if strings.HasPrefix(rest, "=") {
			args, rest = getToken(rest[1:], "[],;")
		}
		filters = append(filters, parsedFilter{name: name, options: parseOptions(t, args)})

		rest = skipLabels(t, rest)
		if rest == "" {
			return filters
		}
		require.Contains(t, ",;", rest[:1], "unexpected %q after %s", rest, name)
		rest = rest[1:]
	}
}

func skipLabels(t *testing.T, s string) string {
	t.Helper()
	s = strings.TrimLeft(s, whitespace)
	for strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		require.Positive(t, end, "unterminated label in %q", s)
		s = strings.TrimLeft(s[end+1:], whitespace)
	}
	return s
}

// parseOptions splits filter arguments into options. Values without a key
// are stored under their position, as in "#0".
func parseOptions(t *testing.T, args string) map[string]string {
	t.Helper()
	opts := map[string]string{}
	for i := 0; args != ""; i++ {
		key := fmt.Sprintf("#%d", i)
		if k, rest, ok := optionKey(args); ok {
			key, args = k, rest
		}
		var value string
		value, args = getToken(args, ":")
		_, dup := opts[key]
		require.False(t, dup, "option %s set twice", key)
		opts[key] = value
		args = strings.TrimPrefix(args, ":")
	}
	return opts
}

func optionKey(s string) (string, string, bool) {
	s = strings.TrimLeft(s, whitespace)
	n := 0
	for n < len(s) && isKeyChar(s[n]) {
		n++
	}
	rest := strings.TrimLeft(s[n:], whitespace)
	if n == 0 || !strings.HasPrefix(rest, "=") {
		return "", "", false
	}
	return s[:n], rest[1:], true
}

func isKeyChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == '/' || c == '.'
}

// expandText renders a drawtext text option. No '%' expansion is expected
// in caption text, so any '%' that reaches it is an error.
func expandText(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == '%':
			return "", fmt.Errorf("stray %% near %q", s[i:])
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// Package repair turns tolerably malformed model output into strictly
// parseable JSON text. It is a pure function of its input: no retries, no
// model calls, no side effects.
package repair

import (
	"encoding/json"
	"errors"
	"strings"

	"visualboard/pkg/utils"
)

// ErrParse reports that the text could not be repaired into valid JSON.
var ErrParse = errors.New("unparseable model output")

// Repair returns a string accepted by a strict JSON parser, or ErrParse.
// The input is first cleaned of markdown fences and surrounding prose;
// if the result is not already valid it goes through a tolerant pass that
// balances brackets and quotes, strips trailing commas, and completes
// truncated strings.
func Repair(raw string) (string, error) {
	s := trimToJSON(utils.CleanJSON(raw))
	if s == "" {
		return "", ErrParse
	}
	if json.Valid([]byte(s)) {
		return s, nil
	}

	repaired := tolerantRepair(s)
	if !json.Valid([]byte(repaired)) {
		return "", ErrParse
	}
	return repaired, nil
}

// trimToJSON cuts leading prose before the first { or [ and anything after
// the matching end of the document. Truncated documents keep their tail.
func trimToJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}
	s = s[start:]

	depth := 0
	inString := false
	escaped := false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				// root value closed; drop any trailing chatter
				return s[:i+1]
			}
		}
	}
	return strings.TrimSpace(s)
}

// tolerantRepair walks the document once, tracking string and nesting
// state, and rewrites it into balanced form.
func tolerantRepair(s string) string {
	var out []rune
	var stack []rune

	inString := false
	escaped := false

	// trimTrailing removes trailing whitespace and, when requested, one
	// trailing comma, from the output built so far.
	trimTrailing := func(comma bool) {
		for len(out) > 0 {
			last := out[len(out)-1]
			if last == ' ' || last == '\n' || last == '\t' || last == '\r' {
				out = out[:len(out)-1]
				continue
			}
			if comma && last == ',' {
				out = out[:len(out)-1]
				continue
			}
			return
		}
	}

	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
				out = append(out, r)
			case r == '\\':
				escaped = true
				out = append(out, r)
			case r == '"':
				inString = false
				out = append(out, r)
			case r == '\n':
				// raw newline inside a string value
				out = append(out, '\\', 'n')
			default:
				out = append(out, r)
			}
			continue
		}

		switch r {
		case '"':
			inString = true
			out = append(out, r)
		case '{', '[':
			stack = append(stack, r)
			out = append(out, r)
		case '}', ']':
			trimTrailing(true)
			if len(stack) == 0 {
				// stray closer, drop it
				continue
			}
			open := stack[len(stack)-1]
			if (r == '}') != (open == '{') {
				// mismatched closer, close what is actually open
				if open == '{' {
					r = '}'
				} else {
					r = ']'
				}
			}
			stack = stack[:len(stack)-1]
			out = append(out, r)
		default:
			out = append(out, r)
		}
	}

	// Truncated mid-string: drop a dangling escape and close the quote.
	if inString {
		if escaped {
			out = out[:len(out)-1]
		}
		out = append(out, '"')
	}

	// Truncated after a separator: a dangling comma is dropped, a dangling
	// colon gets a null value.
	trimTrailing(true)
	if len(out) > 0 && out[len(out)-1] == ':' {
		out = append(out, 'n', 'u', 'l', 'l')
	}
	out = completeLiteral(out)

	// Close whatever is still open, innermost first.
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			out = append(out, '}')
		} else {
			out = append(out, ']')
		}
	}

	return string(out)
}

// completeLiteral fixes a bare literal or number cut off by truncation:
// prefixes of true/false/null are completed, dangling number tails
// (trailing sign, dot, or exponent) are trimmed.
func completeLiteral(out []rune) []rune {
	start := len(out)
	for start > 0 {
		r := out[start-1]
		if r == ',' || r == ':' || r == '{' || r == '[' || r == '"' || r == '}' || r == ']' ||
			r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			break
		}
		start--
	}
	token := string(out[start:])
	if token == "" {
		return out
	}

	for _, lit := range []string{"true", "false", "null"} {
		if token == lit {
			return out
		}
		if strings.HasPrefix(lit, token) {
			return append(out[:start], []rune(lit)...)
		}
	}

	// number tail
	for len(token) > 0 {
		last := token[len(token)-1]
		if last == '-' || last == '+' || last == '.' || last == 'e' || last == 'E' {
			token = token[:len(token)-1]
			continue
		}
		break
	}
	if token == "" {
		// nothing salvageable, null keeps the document valid
		return append(out[:start], []rune("null")...)
	}
	return append(out[:start], []rune(token)...)
}

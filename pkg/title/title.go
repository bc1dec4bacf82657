// Package title normalizes and encodes MediaWiki page titles.
//
// Every title that crosses a package boundary in wikiladder is expected to be
// in normalized form: section fragments stripped, underscores converted to
// spaces, runs of whitespace collapsed, first letter upper-cased, and the
// whole string in Unicode NFC. Map keys, set membership and frontier
// comparisons all rely on this.
//
// The percent codec mirrors Wikipedia's URL naming style: a fixed table of
// characters is escaped on the way out (Encode) and reversed on the way back
// (Decode). A bare "%" is escaped to "%25" only when it is not already the
// start of a valid percent sequence, so re-encoding an encoded title does not
// double-escape it.
package title

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidTitle is returned by Normalize for empty titles or titles
// containing characters MediaWiki forbids.
var ErrInvalidTitle = errors.New("invalid title")

// illegalChars can never appear in a valid page title.
const illegalChars = "{}<>[]|"

// Normalize converts s into the canonical form used for all title
// comparisons and cache keys.
//
// Steps, in order:
//  1. Drop any "#section" suffix.
//  2. Drop a single leading ":".
//  3. Convert underscores to spaces and trim.
//  4. Collapse internal whitespace runs to a single space.
//  5. Upper-case the first rune.
//  6. Apply Unicode NFC.
//
// Returns ErrInvalidTitle for empty/whitespace-only titles and for titles
// containing any of {}<>[]|.
func Normalize(s string) (string, error) {
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, ":")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty or whitespace-only title", ErrInvalidTitle)
	}
	if i := strings.IndexAny(s, illegalChars); i >= 0 {
		return "", fmt.Errorf("%w: %q contains %q", ErrInvalidTitle, s, string(s[i]))
	}
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return norm.NFC.String(string(runes)), nil
}

// encodePairs maps display characters to their transport-safe form. Order
// matters for the replacer; the decode table is derived from this one.
var encodePairs = []string{
	" ", "_",
	"!", "%21",
	"\"", "%22",
	"&", "%26",
	"'", "%27",
	"*", "%2A",
	"+", "%2B",
	",", "%2C",
	"/", "%2F",
	";", "%3B",
	"=", "%3D",
	"?", "%3F",
	"@", "%40",
	"\\", "%5C",
	"`", "%60",
	"–", "%E2%80%93",
}

var (
	encoder = strings.NewReplacer(encodePairs...)
	decoder = func() *strings.Replacer {
		// Longest escape first so "%E2%80%93" is not picked apart.
		pairs := make([]string, 0, len(encodePairs))
		pairs = append(pairs, "%E2%80%93", "–")
		for i := 0; i < len(encodePairs); i += 2 {
			if encodePairs[i] == "–" {
				continue
			}
			pairs = append(pairs, encodePairs[i+1], encodePairs[i])
		}
		return strings.NewReplacer(pairs...)
	}()
)

// Encode percent-encodes a title to match Wikipedia's URL naming style.
// Percent signs that already start a valid percent sequence are left alone.
func Encode(s string) string {
	return escapeBarePercents(encoder.Replace(s))
}

// Decode reverses Encode.
func Decode(s string) string {
	return strings.ReplaceAll(decoder.Replace(s), "%25", "%")
}

func escapeBarePercents(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && !(i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isHex(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}

// Package text cleans model output and splits it into Telegram-sized chunks.
package text

import (
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// MaxMessageLength is Telegram's limit for the text of one message.
const MaxMessageLength = 4096

var (
	// ASCII control characters other than tab and newline.
	controlCharsRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	multipleNewlinesRegex = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes line endings, drops control characters, collapses runs of
// blank lines, and trims surrounding whitespace.
func Clean(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = controlCharsRegex.ReplaceAllString(s, "")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	s = strings.Join(lines, "\n")
	s = multipleNewlinesRegex.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// Len returns the length of s in UTF-16 code units, which is how Telegram
// measures message text. Characters outside the Basic Multilingual Plane,
// such as most emoji, count as two.
func Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

// Split breaks s into chunks of at most limit UTF-16 code units. A chunk ends
// at the last newline, or failing that the last space, inside the limit when
// there is one. Joining the chunks gives back s. An empty s yields no chunks.
func Split(s string, limit int) []string {
	if s == "" {
		return nil
	}
	if limit <= 0 {
		limit = MaxMessageLength
	}

	var chunks []string
	for Len(s) > limit {
		cut := byteOffset(s, limit)
		window := s[:cut]

		if i := strings.LastIndexByte(window, '\n'); i > 0 {
			cut = i + 1
		} else if i := strings.LastIndexByte(window, ' '); i > 0 {
			cut = i + 1
		}

		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// byteOffset returns the byte index just past the longest prefix of s that
// fits in units UTF-16 code units. It always advances by at least one rune.
func byteOffset(s string, units int) int {
	count := 0
	for i, r := range s {
		u := runeUnits(r)
		if count+u > units {
			if i == 0 {
				_, size := utf8.DecodeRuneInString(s)
				return size
			}
			return i
		}
		count += u
	}
	return len(s)
}

func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

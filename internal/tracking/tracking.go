// Package tracking extracts USPS tracking numbers from free text such as
// shipment ids, scan reasons and PDF label text.
package tracking

import (
	"iter"
	"regexp"
	"slices"
	"strings"
)

// Length is the number of digits in a USPS tracking number.
const Length = 22

var channelPrefixes = []string{"92", "93", "94", "95"}

// loosePattern matches digit runs broken up by whitespace or hyphens. The
// whitespace class mirrors what label text extractors emit, including
// no-break and ideographic spaces.
var loosePattern = regexp.MustCompile(`[0-9\s\x{000B}\x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}-]{20,45}`)

// IsValid reports whether number, once stripped of non-digits, is a
// 22-digit code with a USPS channel prefix.
func IsValid(number string) bool {
	return hasChannelPrefix(compact(number))
}

// Extract returns the distinct tracking numbers found in text.
//
// Labels repeat the number in several barcodes and human readable lines, so
// the contiguous pass keeps only the rightmost run; the loose pass then adds
// spaced or hyphenated numbers that were not already collected. This is a
// layout heuristic, not a parser.
func Extract(text string) []string {
	if text == "" {
		return nil
	}
	var numbers []string
	if last, ok := rightmostContiguous(text); ok {
		numbers = append(numbers, last)
	}
	for _, chunk := range loosePattern.FindAllString(text, -1) {
		candidate := compact(chunk)
		if hasChannelPrefix(candidate) && !slices.Contains(numbers, candidate) {
			numbers = append(numbers, candidate)
		}
	}
	return numbers
}

// All yields the numbers Extract would return. Each iteration re-scans text,
// so the sequence can be ranged over more than once.
func All(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, number := range Extract(text) {
			if !yield(number) {
				return
			}
		}
	}
}

// Scan extracts from every text and deduplicates across all of them,
// preserving first-seen order.
func Scan(texts ...string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, text := range texts {
		for number := range All(text) {
			if _, ok := seen[number]; ok {
				continue
			}
			seen[number] = struct{}{}
			out = append(out, number)
		}
	}
	return out
}

func rightmostContiguous(text string) (string, bool) {
	found := ""
	for i := 0; i+Length <= len(text); i++ {
		potential := text[i : i+Length]
		if !isDigits(potential) || !hasChannelPrefix(potential) {
			continue
		}
		found = potential
	}
	return found, found != ""
}

func hasChannelPrefix(digits string) bool {
	if len(digits) != Length {
		return false
	}
	for _, prefix := range channelPrefixes {
		if strings.HasPrefix(digits, prefix) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func compact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

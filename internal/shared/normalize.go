package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeCode trims and upper-cases SKU and location identifiers at the
// boundary so every store sees one canonical spelling.
func NormalizeCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// cases.Caser is stateful; build one per call.
	return cases.Upper(language.Und).String(s)
}

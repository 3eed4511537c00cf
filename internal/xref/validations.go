package xref

import (
	"strings"

	"github.com/starford/stackscope/internal/backendextract"
	"github.com/starford/stackscope/internal/uiextract"
)

// ValidationSimilarity is attached to every validation link.
const ValidationSimilarity = 0.7

// Keywords a UI check and a backend validator name must share, in the order
// they are tried.
var validationKeywords = []string{"email", "phone", "required", "length", "pattern"}

// ValidationLink is one inline UI validator paired with a backend validator
// that checks the same kind of input.
type ValidationLink struct {
	Check      uiextract.Validator
	Validator  backendextract.Validator
	Keyword    string
	Similarity float64
}

// Metadata returns the fields stored on the edge derived from l.
func (l ValidationLink) Metadata() map[string]any {
	return map[string]any{
		"via":          "validation",
		"keyword":      l.Keyword,
		"check":        l.Check.Body,
		"check_file":   l.Check.File,
		"check_line":   l.Check.Line,
		"validator":    l.Validator.Name,
		"validator_of": l.Validator.Owner,
		"similarity":   l.Similarity,
	}
}

// BuildValidations pairs every UI check with every backend validator whose
// name shares a keyword with the check body, case-insensitively. The first
// shared keyword is reported.
func BuildValidations(checks []uiextract.Validator, validators []backendextract.Validator) []ValidationLink {
	var links []ValidationLink
	for _, c := range checks {
		body := strings.ToLower(c.Body)
		for _, v := range validators {
			kw := sharedKeyword(body, strings.ToLower(v.Name))
			if kw == "" {
				continue
			}
			links = append(links, ValidationLink{Check: c, Validator: v, Keyword: kw, Similarity: ValidationSimilarity})
		}
	}
	return links
}

func sharedKeyword(body, name string) string {
	for _, kw := range validationKeywords {
		if strings.Contains(body, kw) && strings.Contains(name, kw) {
			return kw
		}
	}
	return ""
}

package intel

import (
	"regexp"

	"github.com/sideffect263/netviz-backend/internal/models"
)

// Entity is one candidate target extracted from message text. The value is
// the literal matched string: no case folding or normalization happens here,
// so "Example.com" and "example.com" are distinct entities.
type Entity struct {
	Value string
	Type  models.TargetType
}

// Recognizer extracts target entities from free text. The aggregation logic
// only depends on this interface, so a stricter recognizer (net.ParseIP,
// proper hostname validation) can be dropped in without touching it.
type Recognizer interface {
	Extract(text string) []Entity
}

var (
	// label.label..., labels 1-63 alnum/hyphen chars, TLD at least 2 letters
	domainRe = regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}\b`)
	// dotted quad with each octet 0-255
	ipv4Re = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\b`)
)

type regexRecognizer struct{}

// NewRecognizer returns the default regex-based recognizer.
func NewRecognizer() Recognizer {
	return regexRecognizer{}
}

func (regexRecognizer) Extract(text string) []Entity {
	seen := make(map[string]bool)
	var out []Entity

	for _, m := range ipv4Re.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, Entity{Value: m, Type: models.TargetIP})
		}
	}
	for _, m := range domainRe.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, Entity{Value: m, Type: models.TargetDomain})
		}
	}
	return out
}

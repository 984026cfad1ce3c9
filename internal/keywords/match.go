// Package keywords detects safety code phrases in outgoing messages.
package keywords

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/starford/haven/internal/models"
)

// Match returns, in rule order, every rule whose phrase occurs in message
// ignoring case. Rules with a blank phrase never match.
func Match(rules []models.KeywordRule, message string) []models.KeywordRule {
	fold := cases.Fold()
	msg := fold.String(message)

	out := make([]models.KeywordRule, 0)
	for _, r := range rules {
		if strings.TrimSpace(r.Phrase) == "" {
			continue
		}
		if strings.Contains(msg, fold.String(r.Phrase)) {
			out = append(out, r)
		}
	}
	return out
}

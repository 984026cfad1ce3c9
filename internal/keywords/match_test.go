package keywords

import (
	"testing"

	"github.com/starford/haven/internal/models"
)

func TestMatch(t *testing.T) {
	rules := models.DefaultKeywords()
	cases := []struct {
		msg  string
		want []string
	}{
		{"CODE RED now", []string{"1"}},
		{"hey, call me asap. code red", []string{"1", "2"}},
		{"what's the weather like?", []string{"3"}},
		{"all good", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := Match(rules, tc.msg)
		if len(got) != len(tc.want) {
			t.Errorf("Match(%q) = %+v, want ids %v", tc.msg, got, tc.want)
			continue
		}
		for i, r := range got {
			if r.ID != tc.want[i] {
				t.Errorf("Match(%q)[%d] = %s, want %s", tc.msg, i, r.ID, tc.want[i])
			}
		}
	}
}

func TestMatch_BlankPhraseNeverMatches(t *testing.T) {
	rules := []models.KeywordRule{{ID: "b", Phrase: "  ", Response: "x"}}
	if got := Match(rules, "anything at all"); len(got) != 0 {
		t.Errorf("blank phrase matched: %+v", got)
	}
}

func TestMatch_NonNilResult(t *testing.T) {
	if got := Match(nil, "x"); got == nil {
		t.Error("Match returned nil slice")
	}
}

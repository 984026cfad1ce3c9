package entity

import (
	"testing"

	"github.com/starford/haven/internal/models"
)

func TestCollectionClone(t *testing.T) {
	var nilc Collection[models.KeywordRule]
	if c := nilc.Clone(); c == nil || len(c) != 0 {
		t.Errorf("Clone of nil = %#v", c)
	}
	src := Collection[models.KeywordRule](models.DefaultKeywords())
	cp := src.Clone()
	cp[0].Phrase = "x"
	if src[0].Phrase == "x" {
		t.Error("Clone shares backing array")
	}
}

func TestCollectionFind(t *testing.T) {
	c := Collection[models.KeywordRule](models.DefaultKeywords())
	if r, ok := c.Find("2"); !ok || r.Phrase != "Call me ASAP" {
		t.Errorf("Find(2) = %+v, %v", r, ok)
	}
	if c.Contains("nope") {
		t.Error("Contains(nope)")
	}
}

package docs

import "testing"

func TestTopicsAndGet(t *testing.T) {
	topics := Topics()
	if len(topics) == 0 {
		t.Fatalf("no topics embedded")
	}
	for _, topic := range topics {
		if body, ok := Get(topic); !ok || body == "" {
			t.Fatalf("Get(%q) failed", topic)
		}
	}
	if _, ok := Get("Overview"); !ok {
		t.Fatalf("topic lookup should be case-insensitive")
	}
	if _, ok := Get("../docs"); ok {
		t.Fatalf("path-like topics must not resolve")
	}
}

func TestAliasesResolve(t *testing.T) {
	for alias, topic := range aliases {
		got, ok := Get(alias)
		want, _ := Get(topic)
		if !ok || got != want {
			t.Fatalf("alias %q should show %q", alias, topic)
		}
	}
}

func TestIndex(t *testing.T) {
	idx := Index()
	if len(idx) != len(Topics()) {
		t.Fatalf("index has %d entries, want %d", len(idx), len(Topics()))
	}
	for _, e := range idx {
		if e.Topic == "validation" {
			if e.Title != "Validation" {
				t.Fatalf("title = %q", e.Title)
			}
			if len(e.Also) == 0 || e.Also[0] != "publish" {
				t.Fatalf("aliases = %v", e.Also)
			}
			return
		}
	}
	t.Fatalf("validation topic missing from index")
}

package presentation

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateChoice_ShortNameUnchanged(t *testing.T) {
	name := "Океан Ельзи — Обійми"
	if got := truncateChoice(name); got != name {
		t.Errorf("expected %q unchanged, got %q", name, got)
	}
}

func TestTruncateChoice_MultiByteTitle(t *testing.T) {
	name := strings.Repeat("б", 120)

	got := truncateChoice(name)

	if !utf8.ValidString(got) {
		t.Fatalf("truncated name is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 100 {
		t.Errorf("expected 100 runes, got %d", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}
}

package styling

import (
	"strings"
	"testing"
)

func TestFinalizeShortTextPassesThrough(t *testing.T) {
	got := Finalize("A short answer", "curious", 140)
	want := "A short answer." + Disclaimer
	if got != want {
		t.Fatalf("Finalize() = %q, want %q", got, want)
	}
}

func TestFinalizeKeepsExistingPunctuation(t *testing.T) {
	got := Finalize("Indeed!", "", 140)
	if got != "Indeed!"+Disclaimer {
		t.Fatalf("Finalize() = %q, want no extra period", got)
	}
}

func TestFinalizeEmptyInputYieldsDisclaimer(t *testing.T) {
	got := Finalize("", "", 140)
	if got != Disclaimer {
		t.Fatalf("Finalize(\"\") = %q, want bare disclaimer", got)
	}
}

func TestFinalizeCollapsesWhitespace(t *testing.T) {
	got := Finalize("too   many\n\nspaces  here.", "", 140)
	want := "too many spaces here." + Disclaimer
	if got != want {
		t.Fatalf("Finalize() = %q, want %q", got, want)
	}
}

func TestFinalizeTruncatesToMaxWords(t *testing.T) {
	long := strings.Repeat("word ", 200)
	got := Finalize(long, "", 140)

	body := strings.TrimSuffix(got, Disclaimer)
	body = strings.TrimSuffix(body, "...")
	if n := len(strings.Fields(body)); n > 140 {
		t.Fatalf("finalized body has %d words, want <= 140", n)
	}
	if !strings.HasSuffix(got, Disclaimer) {
		t.Fatalf("Finalize() = %q, want disclaimer suffix", got)
	}
}

func TestFinalizeCutsAtSentenceBoundaryNearLimit(t *testing.T) {
	// 139 filler words, then a sentence ending inside the scan range of
	// the 140-word truncation point.
	text := strings.Repeat("filler ", 138) + "the end. trailing words beyond the cap continue here"
	got := Finalize(text, "", 140)

	body := strings.TrimSuffix(got, Disclaimer)
	if !strings.HasSuffix(body, "the end.") {
		t.Fatalf("Finalize() body = %q, want cut at %q", body, "the end.")
	}
}

func TestFinalizeEllipsisWhenNoBoundaryFound(t *testing.T) {
	long := strings.Repeat("unpunctuated ", 200)
	got := Finalize(long, "", 140)

	body := strings.TrimSuffix(got, Disclaimer)
	if !strings.HasSuffix(body, "...") {
		t.Fatalf("Finalize() body = %q, want ellipsis suffix", body)
	}
}

func TestFinalizeZeroMaxWordsUsesDefault(t *testing.T) {
	long := strings.Repeat("word ", DefaultMaxWords+10)
	got := Finalize(long, "", 0)
	body := strings.TrimSuffix(got, Disclaimer)
	body = strings.TrimSuffix(body, "...")
	if n := len(strings.Fields(body)); n > DefaultMaxWords {
		t.Fatalf("finalized body has %d words, want <= %d", n, DefaultMaxWords)
	}
}

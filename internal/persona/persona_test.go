package persona

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writePersona(t *testing.T, dir, id, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, id+".json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write persona file: %v", err)
	}
}

func TestLibraryLoad(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, "einstein", `{
		"name": "Einstein",
		"speakingStyle": "thoughtful, curious",
		"fewShot": [{"user": "hi", "assistant": "Ah, hello!"}]
	}`)

	p, err := NewLibrary(dir).Load("einstein")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.ID != "einstein" || p.Name != "Einstein" {
		t.Fatalf("unexpected persona: %+v", p)
	}
	if len(p.FewShot) != 1 || p.FewShot[0].Assistant != "Ah, hello!" {
		t.Fatalf("FewShot = %+v, want one example", p.FewShot)
	}
}

func TestLibraryLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, "sparse", `{}`)

	p, err := NewLibrary(dir).Load("sparse")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Name != "sparse" {
		t.Fatalf("Name = %q, want persona id fallback", p.Name)
	}
	if p.SpeakingStyle != "conversational" {
		t.Fatalf("SpeakingStyle = %q, want %q", p.SpeakingStyle, "conversational")
	}
}

func TestLibraryLoadMissing(t *testing.T) {
	_, err := NewLibrary(t.TempDir()).Load("ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestLibraryLoadRejectsPathEscape(t *testing.T) {
	for _, id := range []string{"../secret", "a/b", `a\b`, ""} {
		if _, err := NewLibrary(t.TempDir()).Load(id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Load(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}

func TestLibraryLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, "broken", `{not json`)

	_, err := NewLibrary(dir).Load("broken")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load() error = %v, want ErrInvalid", err)
	}
}

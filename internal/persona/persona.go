package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound = errors.New("persona not found")
	ErrInvalid  = errors.New("invalid persona file")
)

// Shot is one few-shot example forwarded to the completion provider.
type Shot struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Persona describes a character profile loaded from a JSON descriptor.
type Persona struct {
	ID            string `json:"-"`
	Name          string `json:"name"`
	SpeakingStyle string `json:"speakingStyle"`
	FewShot       []Shot `json:"fewShot"`
}

// Library loads persona descriptors from a directory of <id>.json files.
type Library struct {
	dir string
}

func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Load reads and validates the descriptor for the given persona id.
func (l *Library) Load(id string) (Persona, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return Persona{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	data, err := os.ReadFile(filepath.Join(l.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return Persona{}, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return Persona{}, fmt.Errorf("read persona %q: %w", id, err)
	}

	var p Persona
	if err := json.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("%w: %q: %v", ErrInvalid, id, err)
	}

	p.ID = id
	if strings.TrimSpace(p.Name) == "" {
		p.Name = id
	}
	if strings.TrimSpace(p.SpeakingStyle) == "" {
		p.SpeakingStyle = "conversational"
	}
	return p, nil
}

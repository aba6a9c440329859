package knowledge

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// FactSource retrieves short factual strings for a persona. Lookups are
// pure: a missing persona or a broken backing store yields an empty
// slice, never an error into the turn pipeline.
type FactSource interface {
	Facts(ctx context.Context, personaID string) []string
	Close() error
}

// FileFacts reads facts from <dir>/<persona>.json files shaped as
// {"facts": ["...", ...]}.
type FileFacts struct {
	dir string
}

func NewFileFacts(dir string) *FileFacts {
	return &FileFacts{dir: dir}
}

func (f *FileFacts) Facts(_ context.Context, personaID string) []string {
	personaID = strings.TrimSpace(personaID)
	if personaID == "" || strings.ContainsAny(personaID, `/\`) || strings.Contains(personaID, "..") {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(f.dir, personaID+".json"))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("persona", personaID).Msg("facts file unreadable")
		}
		return nil
	}

	var doc struct {
		Facts []any `json:"facts"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("persona", personaID).Msg("facts file is not valid JSON")
		return nil
	}

	// Non-string entries are dropped rather than failing the lookup.
	out := make([]string, 0, len(doc.Facts))
	for _, v := range doc.Facts {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (f *FileFacts) Close() error { return nil }

package knowledge

import (
	"context"
	"strings"
)

// NewFactSource creates a postgres-backed source when configured,
// otherwise the file-based one.
func NewFactSource(ctx context.Context, dir, databaseURL string) (FactSource, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewFileFacts(dir), nil
	}
	return NewPostgresFacts(ctx, databaseURL)
}

package memory

import (
	"context"
	"strings"
)

// NewArchive creates a postgres-backed archive when configured,
// otherwise a file archive rooted at dir.
func NewArchive(ctx context.Context, databaseURL, dir string) (Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewFileArchive(dir)
	}
	return NewPostgresArchive(ctx, databaseURL)
}

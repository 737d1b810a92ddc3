package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/BriefyHQ/docflow/pkg/persistence"
	"github.com/BriefyHQ/docflow/pkg/persistence/file"
	"github.com/BriefyHQ/docflow/pkg/persistence/postgresql"
	"github.com/BriefyHQ/docflow/pkg/persistence/sqlite"
)

// NewStore builds a document store from a database URL. Supported schemes:
// postgres://, sqlite://; anything else is treated as a file-store root
// directory.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewStore(ctx, logger, databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return sqlite.NewStore(ctx, strings.TrimPrefix(databaseURL, "sqlite://"))
	default:
		return file.NewStore(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}

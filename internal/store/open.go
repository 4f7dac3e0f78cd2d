package store

import (
	"fmt"
	"strings"
)

// Backend names a storage implementation.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
	BackendMemory   Backend = "memory"
)

// ParseURL picks the backend for a database URL and returns the
// driver-specific data source name.
//
//	postgres://... / postgresql://...  -> postgres, URL unchanged
//	sqlite:///abs/path.db / sqlite://rel.db -> sqlite, path
//	file:path.db?opts                  -> sqlite, unchanged
//	memory://                          -> in-process, not persisted
func ParseURL(databaseURL string) (Backend, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return BackendPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite url %q has no path", databaseURL)
		}
		return BackendSQLite, path, nil
	case strings.HasPrefix(databaseURL, "file:"):
		return BackendSQLite, databaseURL, nil
	case strings.HasPrefix(databaseURL, "memory://"):
		return BackendMemory, "", nil
	case databaseURL == "":
		return "", "", fmt.Errorf("database url is empty")
	default:
		return "", "", fmt.Errorf("unsupported database url %q (want postgres://, sqlite:// or file:)", databaseURL)
	}
}

// LikePattern escapes LIKE wildcards in term and wraps it for a substring
// match with ESCAPE '\'.
func LikePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// PrefixPattern is LikePattern for ids starting with term.
func PrefixPattern(term string) string {
	return likeEscaper.Replace(term) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

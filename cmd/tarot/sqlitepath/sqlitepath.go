// Package sqlitepath resolves where the tarot SQLite database lives.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/tarot/pkg/dotdir"
)

// DefaultName is the database file created in the .tarot/ directory.
const DefaultName = "tarot.db"

// ResolveSQLitePath returns the database path. Order of precedence:
//  1. Provided override
//  2. TAROT_SQLITE / TAROT_DB environment variables
//  3. An existing database in the working directory
//  4. tarot.db in the resolved .tarot/ directory
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("TAROT_SQLITE")); envPath != "" {
		return envPath, nil
	}
	if envPath := strings.TrimSpace(os.Getenv("TAROT_DB")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range []string{"tarot.db", "tarot.sqlite"} {
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Abs(candidate)
		}
	}

	return dotdir.NewManager().Path(configDir, DefaultName)
}

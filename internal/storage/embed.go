package storage

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsFS returns the embedded migration sources, rooted at the
// directory containing the .sql files.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		// The subdirectory is embedded at compile time; failure here means
		// a broken build, not a runtime condition.
		panic(err)
	}

	return sub
}

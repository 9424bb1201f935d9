package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

// filenamePattern matches migration sources named
// {3-digit version}_{snake_case name}_{backend tag}.sql,
// e.g. 001_initial_schema_sqlite.sql.
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by Load
	`^(\d{3})_(.+)_([a-z0-9]+)\.sql$`,
)

// Load reads all migration definitions for the given backend from fsys.
// Files without a digit prefix or .sql suffix are ignored entirely; files
// that look like migrations but cannot be parsed fail with
// MalformedIdentifierError. Definitions for a recognized but different
// backend are skipped; that is how one logical schema change ships as two
// dialect-specific bodies. Results are sorted by ascending version.
func Load(fsys fs.FS, backend Backend) ([]Definition, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migration sources: %w", err)
	}

	var defs []Definition

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		if !isCandidate(filename) {
			continue
		}

		matches := filenamePattern.FindStringSubmatch(filename)
		if matches == nil {
			return nil, &MalformedIdentifierError{Filename: filename}
		}

		tag := Backend(matches[3])
		if tag != BackendSQLite && tag != BackendPostgres {
			continue // unsupported backend tag
		}

		if tag != backend {
			continue
		}

		body, err := fs.ReadFile(fsys, filename)
		if err != nil {
			return nil, fmt.Errorf("reading migration source %s: %w", filename, err)
		}

		defs = append(defs, Definition{
			Version:  matches[1],
			Name:     matches[2],
			Backend:  tag,
			Body:     string(body),
			Checksum: ComputeChecksum(string(body)),
		})
	}

	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].Version < defs[j].Version
	})

	return defs, nil
}

// isCandidate reports whether a filename should be treated as a migration
// source at all. README files, scripts, and the like are not candidates and
// never produce errors.
func isCandidate(filename string) bool {
	if !strings.HasSuffix(filename, ".sql") {
		return false
	}

	return filename[0] >= '0' && filename[0] <= '9'
}

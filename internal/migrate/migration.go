package migrate

import (
	"crypto/sha256"
	"encoding/hex"
)

// Backend identifies which database engine a migration body targets.
type Backend string

// Supported backends. The tag doubles as the filename suffix that selects
// which dialect of a logical schema change is loaded.
const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Baseline ledger entry recorded for databases whose schema predates the
// migration system. It has no source definition and is exempt from
// checksum verification.
const (
	BaselineVersion = "000"
	BaselineName    = "legacy_baseline"
)

// Definition represents a single migration loaded from source, rebuilt on
// every startup.
type Definition struct {
	Version  string  // zero-padded ordinal from the filename, "001"
	Name     string  // informational slug, "initial_schema"
	Backend  Backend // which engine the body is written for
	Body     string  // raw DDL/DML text, executed verbatim
	Checksum string  // SHA-256 hex digest of Body
}

// ComputeChecksum returns the SHA-256 hex digest of the raw migration body,
// whitespace included. The digest is part of the ledger's on-disk contract:
// operators can verify a recorded checksum against the source file with
// plain sha256sum.
func ComputeChecksum(body string) string {
	h := sha256.Sum256([]byte(body))

	return hex.EncodeToString(h[:])
}

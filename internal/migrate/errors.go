package migrate

import (
	"errors"
	"fmt"
)

// ErrDuplicateVersion indicates a ledger insert conflicted with an existing
// row for the same version. Another instance applied the migration first;
// callers treat this as "already applied", not as a failure.
var ErrDuplicateVersion = errors.New("migration version already recorded")

// ErrReservedVersion indicates a source file claims version 000, which is
// reserved for the synthetic legacy baseline.
var ErrReservedVersion = errors.New("migration version 000 is reserved for the legacy baseline")

// MalformedIdentifierError indicates a migration source whose filename could
// not be parsed into version, name, and backend tag.
type MalformedIdentifierError struct {
	Filename string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("malformed migration identifier %q: want {version}_{name}_{backend}.sql", e.Filename)
}

// SequenceGapError indicates the loaded definitions do not form a
// contiguous version sequence. Applying around a hole could leave the
// schema inconsistent across deployments, so this aborts startup.
type SequenceGapError struct {
	Missing string
}

func (e *SequenceGapError) Error() string {
	return fmt.Sprintf("migration sequence has a gap: version %s is missing", e.Missing)
}

// DuplicateDefinitionError indicates two source files claim the same
// version for the same backend.
type DuplicateDefinitionError struct {
	Version string
}

func (e *DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("duplicate migration version %s in source", e.Version)
}

// ChecksumDriftError indicates an applied migration's recorded checksum no
// longer matches the definition on disk. The deployed schema was produced
// by SQL that differs from what is checked in, so startup is aborted rather
// than silently trusting the ledger.
type ChecksumDriftError struct {
	Version  string
	Name     string
	Recorded string
	Current  string
}

func (e *ChecksumDriftError) Error() string {
	return fmt.Sprintf("checksum drift on migration %s_%s: ledger has %s, source is %s",
		e.Version, e.Name, e.Recorded, e.Current)
}

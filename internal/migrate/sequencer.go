package migrate

import (
	"fmt"
	"strconv"
)

// ValidateSequence checks that the loaded definitions have unique versions
// forming a contiguous run starting at 001, and returns them in canonical
// apply order (ascending numeric version). Load already sorts; validation
// is over the sorted slice so a gap is reported by its missing version.
func ValidateSequence(defs []Definition) ([]Definition, error) {
	for i, d := range defs {
		if d.Version == BaselineVersion {
			return nil, fmt.Errorf("%s: %w", d.Name, ErrReservedVersion)
		}

		if i > 0 && defs[i-1].Version == d.Version {
			return nil, &DuplicateDefinitionError{Version: d.Version}
		}

		n, err := strconv.Atoi(d.Version)
		if err != nil {
			// Unreachable for definitions built by Load, which only accepts
			// digit versions. Guard anyway for hand-constructed inputs.
			return nil, &MalformedIdentifierError{Filename: d.Version + "_" + d.Name}
		}

		if want := i + 1; n != want {
			return nil, &SequenceGapError{Missing: fmt.Sprintf("%03d", want)}
		}
	}

	return defs, nil
}

// Package domain defines the typed identifiers shared across the catalog.
//
// IDs are uuid-backed named types so a competency id can never be passed
// where a different id is expected. Actor identities come from the auth
// layer and are opaque strings to support external identity schemes.
package domain

import "github.com/google/uuid"

// CompetencyID identifies a competency record.
type CompetencyID uuid.UUID

// NewCompetencyID returns a fresh random competency id.
func NewCompetencyID() CompetencyID {
	return CompetencyID(uuid.New())
}

// ParseCompetencyID parses the canonical string form of a competency id.
func ParseCompetencyID(s string) (CompetencyID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CompetencyID{}, err
	}
	return CompetencyID(u), nil
}

func (id CompetencyID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText encodes the id in its canonical string form so JSON payloads
// carry "550e8400-..." rather than a byte array.
func (id CompetencyID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the canonical string form.
func (id *CompetencyID) UnmarshalText(data []byte) error {
	parsed, err := ParseCompetencyID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsNil reports whether the id is the zero value.
func (id CompetencyID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

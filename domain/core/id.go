package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// AnalysisID identifies one analysis run over a trial snapshot.
	AnalysisID ID
	// NCTID is a ClinicalTrials.gov registry identifier, e.g. NCT01234567.
	NCTID ID
)

func (id AnalysisID) String() string { return ID(id).String() }
func (id NCTID) String() string      { return ID(id).String() }

// NewAnalysisID returns a fresh time-ordered analysis id.
func NewAnalysisID() AnalysisID {
	return AnalysisID(NewID())
}

// ParseNCTID normalizes s (trimmed, upper case) and checks the NCT prefix.
func ParseNCTID(s string) (NCTID, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidNCTID)
	}
	if !strings.HasPrefix(s, "NCT") {
		return "", fmt.Errorf("%w: %s", ErrInvalidNCTID, s)
	}
	return NCTID(s), nil
}

// Package reference resolves normalized lookup entities (locations,
// nationalities, sectors, institutions, professions, portals and candidate
// statuses) by their natural name, creating them on first use.
package reference

import "fmt"

// Kind identifies one reference table.
type Kind int

const (
	KindRegion Kind = iota + 1
	KindCommune
	KindNationality
	KindSector
	KindInstitution
	KindProfession
	KindPortal
	KindCandidateStatus
)

var kindTables = map[Kind]string{
	KindRegion:          "regions",
	KindCommune:         "communes",
	KindNationality:     "nationalities",
	KindSector:          "sectors",
	KindInstitution:     "institutions",
	KindProfession:      "professions",
	KindPortal:          "portals",
	KindCandidateStatus: "candidate_statuses",
}

var kindNames = map[Kind]string{
	KindRegion:          "region",
	KindCommune:         "commune",
	KindNationality:     "nationality",
	KindSector:          "sector",
	KindInstitution:     "institution",
	KindProfession:      "profession",
	KindPortal:          "portal",
	KindCandidateStatus: "candidate_status",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Table returns the table backing the kind.
func (k Kind) Table() string {
	return kindTables[k]
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindTables[k]
	return ok
}

// Seeded reports whether rows of this kind come from migrations only.
// The resolver never creates seeded rows; a missing one is a configuration error.
func (k Kind) Seeded() bool {
	return k == KindCandidateStatus
}

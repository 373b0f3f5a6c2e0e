package onboarding

import (
	"strings"

	"recruitment_backend/platform/apperr"
	"recruitment_backend/platform/sanitize"
)

// NameParts is a full name split into the three stored name columns.
type NameParts struct {
	FirstName     string
	FirstSurname  string
	SecondSurname string
	// Degraded is set when the full name had a single token and both
	// surnames are empty.
	Degraded bool
}

// SplitFullName splits on whitespace: the first token is the first name,
// the second the first surname and the remaining tokens the second surname.
// Compound first names therefore shift into the surnames.
func SplitFullName(full string) (NameParts, error) {
	tokens := strings.Fields(sanitize.Name(full))
	switch len(tokens) {
	case 0:
		return NameParts{}, apperr.Validation("full name is required").WithDetails(map[string]string{"FullName": "notblank"})
	case 1:
		return NameParts{FirstName: tokens[0], Degraded: true}, nil
	default:
		return NameParts{
			FirstName:     tokens[0],
			FirstSurname:  tokens[1],
			SecondSurname: strings.Join(tokens[2:], " "),
		}, nil
	}
}

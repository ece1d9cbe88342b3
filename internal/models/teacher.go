package models

import (
	"strings"
	"time"
)

// Teacher is a member of staff who may be assigned to course periods.
// Qualifications is a comma-separated set of subject-area tokens; an empty
// set is a wild-card meaning the teacher may teach any department.
type Teacher struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Department     string    `db:"department" json:"department"`
	Qualifications string    `db:"qualifications" json:"qualifications"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// QualificationTokens returns the normalized qualification tokens.
func (t *Teacher) QualificationTokens() []string {
	return NormalizeEquipment(t.Qualifications)
}

// EligibleFor reports whether the teacher may teach the course: the course
// department must appear in the qualification set, or the set is empty.
func (t *Teacher) EligibleFor(course *Course) bool {
	quals := t.QualificationTokens()
	if len(quals) == 0 {
		return true
	}
	dept := strings.ToLower(strings.TrimSpace(course.Department))
	for _, q := range quals {
		if q == dept {
			return true
		}
	}
	return false
}

package storage

import (
	"time"

	"github.com/aanand-mishra/students-api/internal/types"
)

// Assignment is one "column = value" pair of an UPDATE statement.
type Assignment struct {
	Column string
	Value  any
}

// PatchAssignments lists the columns a StudentPatch touches, in a stable
// order, followed by updated_at. It returns nil for an empty patch.
func PatchAssignments(p types.StudentPatch, now time.Time) []Assignment {
	if p.IsEmpty() {
		return nil
	}

	var out []Assignment
	if p.FirstName != nil {
		out = append(out, Assignment{"first_name", *p.FirstName})
	}
	if p.LastName != nil {
		out = append(out, Assignment{"last_name", *p.LastName})
	}
	if p.Email != nil {
		out = append(out, Assignment{"email", *p.Email})
	}
	if p.BirthDate.Set {
		out = append(out, Assignment{"birth_date", p.BirthDate.Ptr()})
	}
	if p.Grade.Set {
		out = append(out, Assignment{"grade", p.Grade.Ptr()})
	}
	return append(out, Assignment{"updated_at", now})
}

package browser

import (
	"fmt"

	"github.com/mwantia/sessionbrowser/pkg/query"
)

// Role selects the defaults applied to a browser.
type Role string

const (
	RoleTherapist  Role = "therapist"
	RoleResearcher Role = "researcher"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleTherapist, RoleResearcher, RoleAdmin:
		return r, nil
	case "":
		return RoleTherapist, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Column is a displayable attribute.
type Column string

const (
	ColumnName         Column = "name"
	ColumnPatientID    Column = "patient_id"
	ColumnPatientName  Column = "patient_name"
	ColumnTherapist    Column = "therapist"
	ColumnSessionDate  Column = "session_date"
	ColumnSize         Column = "size"
	ColumnSizeCategory Column = "size_category"
	ColumnCreatedAt    Column = "created_at"
	ColumnNotes        Column = "notes"
)

// AllColumns lists every column in display order.
var AllColumns = []Column{
	ColumnName, ColumnPatientID, ColumnPatientName, ColumnTherapist, ColumnSessionDate,
	ColumnSize, ColumnSizeCategory, ColumnCreatedAt, ColumnNotes,
}

// RoleDefaults are the initial sort and columns of a role.
type RoleDefaults struct {
	Sort    query.SortSpec
	Columns []Column
}

// DefaultsFor returns the defaults of role. Therapists only see their own
// patients, so the therapist column is hidden for them.
func DefaultsFor(role Role) RoleDefaults {
	switch role {
	case RoleResearcher:
		return RoleDefaults{
			Sort:    query.SortSpec{Field: query.FieldName, Direction: query.Asc},
			Columns: AllColumns,
		}
	case RoleAdmin:
		return RoleDefaults{
			Sort:    query.SortSpec{Field: query.FieldCreatedAt, Direction: query.Desc},
			Columns: AllColumns,
		}
	default:
		return RoleDefaults{
			Sort: query.SortSpec{Field: query.FieldSessionDate, Direction: query.Desc},
			Columns: []Column{
				ColumnName, ColumnPatientID, ColumnPatientName, ColumnSessionDate,
				ColumnSize, ColumnNotes,
			},
		}
	}
}

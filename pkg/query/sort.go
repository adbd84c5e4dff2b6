package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mwantia/sessionbrowser/pkg/records"
)

// Field names a sortable attribute.
type Field string

const (
	FieldName         Field = "name"
	FieldSize         Field = "size"
	FieldCreatedAt    Field = "created_at"
	FieldPatientID    Field = "patient_id"
	FieldPatientName  Field = "patient_name"
	FieldTherapist    Field = "therapist"
	FieldSessionDate  Field = "session_date"
	FieldSizeCategory Field = "size_category"
	FieldNotes        Field = "notes"
)

// Fields lists every sortable field.
var Fields = []Field{
	FieldName, FieldSize, FieldCreatedAt, FieldPatientID, FieldPatientName,
	FieldTherapist, FieldSessionDate, FieldSizeCategory, FieldNotes,
}

// Direction is the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortSpec selects the active sort.
type SortSpec struct {
	Field     Field
	Direction Direction
}

// ParseSortSpec parses a field name and direction.
func ParseSortSpec(field, direction string) (SortSpec, error) {
	spec := SortSpec{Field: Field(strings.ToLower(field)), Direction: Direction(strings.ToLower(direction))}
	if spec.Direction == "" {
		spec.Direction = Asc
	}
	if !slices.Contains(Fields, spec.Field) {
		return SortSpec{}, fmt.Errorf("unknown sort field %q", field)
	}
	if spec.Direction != Asc && spec.Direction != Desc {
		return SortSpec{}, fmt.Errorf("unknown sort direction %q", direction)
	}
	return spec, nil
}

var sizeRank = map[records.SizeCategory]int{
	records.SizeSmall:  0,
	records.SizeMedium: 1,
	records.SizeLarge:  2,
}

// Sort returns a stably sorted copy of recs. Records without a value for a
// time field always sort last, whatever the direction.
func Sort(recs []records.ResolvedRecord, spec SortSpec) []records.ResolvedRecord {
	out := slices.Clone(recs)
	if spec.Field == "" {
		return out
	}

	// Collators keep internal buffers and are not safe for concurrent use.
	coll := collate.New(language.English)
	strCmp := func(a, b string) int { return coll.CompareString(a, b) }
	desc := spec.Direction == Desc

	var compare func(a, b records.ResolvedRecord) int
	switch spec.Field {
	case FieldName:
		compare = func(a, b records.ResolvedRecord) int { return strCmp(a.Name, b.Name) }
	case FieldPatientID:
		compare = func(a, b records.ResolvedRecord) int { return strCmp(a.PatientID, b.PatientID) }
	case FieldPatientName:
		compare = func(a, b records.ResolvedRecord) int { return strCmp(a.PatientName, b.PatientName) }
	case FieldTherapist:
		compare = func(a, b records.ResolvedRecord) int { return strCmp(a.TherapistDisplay, b.TherapistDisplay) }
	case FieldSize:
		compare = func(a, b records.ResolvedRecord) int { return cmp.Compare(a.Size, b.Size) }
	case FieldNotes:
		compare = func(a, b records.ResolvedRecord) int { return a.NotesCount - b.NotesCount }
	case FieldSizeCategory:
		compare = func(a, b records.ResolvedRecord) int { return sizeRank[a.SizeCategory] - sizeRank[b.SizeCategory] }
	case FieldSessionDate:
		slices.SortStableFunc(out, func(a, b records.ResolvedRecord) int {
			return compareTimes(a.SessionDateTime, b.SessionDateTime, desc)
		})
		return out
	case FieldCreatedAt:
		slices.SortStableFunc(out, func(a, b records.ResolvedRecord) int {
			return compareTimes(nonZero(a.CreatedAt), nonZero(b.CreatedAt), desc)
		})
		return out
	default:
		return out
	}

	slices.SortStableFunc(out, func(a, b records.ResolvedRecord) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

// compareTimes orders nil after every non-nil value in both directions.
func compareTimes(a, b *time.Time, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c := a.Compare(*b)
	if desc {
		return -c
	}
	return c
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

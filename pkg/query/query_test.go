package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwantia/sessionbrowser/pkg/records"
)

func at(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func tod(s string) *TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return &t
}

func rec(name string, session *time.Time) records.ResolvedRecord {
	return records.ResolvedRecord{
		FileRecord:     records.FileRecord{ID: name, Name: name},
		ResolvedFields: records.ResolvedFields{SessionDateTime: session, PatientName: records.UnknownPatient},
	}
}

func names(recs []records.ResolvedRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestFilter_Search(t *testing.T) {
	recs := []records.ResolvedRecord{rec("P005_2024.rec", nil), rec("P006_2024.rec", nil)}
	got := Filter(recs, Filters{Search: "p005"})
	assert.Equal(t, []string{"P005_2024.rec"}, names(got))

	byPatient := rec("upload.c3d", nil)
	byPatient.PatientName = "Jane Doe"
	got = Filter(append(recs, byPatient), Filters{Search: "jane"})
	assert.Equal(t, []string{"upload.c3d"}, names(got))
}

func TestFilter_Categorical(t *testing.T) {
	a := rec("a", nil)
	a.PatientID, a.PatientName, a.TherapistDisplay, a.SizeCategory, a.NotesCount = "P001", "Jane Doe", "Dr. A", records.SizeSmall, 2
	b := rec("b", nil)
	b.PatientID, b.PatientName, b.TherapistDisplay, b.SizeCategory = "P002", "John Roe", "Dr. B", records.SizeLarge
	recs := []records.ResolvedRecord{a, b}

	assert.Equal(t, []string{"a"}, names(Filter(recs, Filters{PatientID: "p001"})))
	assert.Equal(t, []string{"b"}, names(Filter(recs, Filters{PatientName: "roe"})))
	assert.Equal(t, []string{"b"}, names(Filter(recs, Filters{Therapist: "dr. b"})))
	assert.Equal(t, []string{"a"}, names(Filter(recs, Filters{SizeCategory: records.SizeSmall})))
	assert.Equal(t, []string{"a"}, names(Filter(recs, Filters{Notes: NotesWith})))
	assert.Equal(t, []string{"b"}, names(Filter(recs, Filters{Notes: NotesWithout})))
	assert.Empty(t, Filter(recs, Filters{PatientID: "P001", Therapist: "Dr. B"}))
	assert.Len(t, Filter(recs, Filters{}), 2)
}

func TestFilter_DateRange(t *testing.T) {
	recs := []records.ResolvedRecord{
		rec("jan1", at("2024-01-01 09:00")),
		rec("jan2", at("2024-01-02 23:59")),
		rec("jan3", at("2024-01-03 00:00")),
		rec("undated", nil),
	}

	got := Filter(recs, Filters{DateFrom: at("2024-01-02 12:00"), DateTo: at("2024-01-02 00:00")})
	assert.Equal(t, []string{"jan2"}, names(got), "bounds compare by calendar day, inclusive")

	got = Filter(recs, Filters{DateFrom: at("2024-01-02 00:00")})
	assert.Equal(t, []string{"jan2", "jan3"}, names(got))

	got = Filter(recs, Filters{DateTo: at("2024-01-01 00:00")})
	assert.Equal(t, []string{"jan1"}, names(got))

	got = Filter(recs, Filters{DateFrom: at("2024-01-03 00:00"), DateTo: at("2024-01-01 00:00")})
	assert.Empty(t, got, "from after to yields nothing")
}

func TestFilter_TimeRange(t *testing.T) {
	recs := []records.ResolvedRecord{
		rec("morning", at("2024-01-01 08:30")),
		rec("noon", at("2024-01-01 12:00")),
		rec("evening", at("2024-01-01 19:15")),
		rec("undated", nil),
	}

	got := Filter(recs, Filters{TimeFrom: tod("08:30"), TimeTo: tod("12:00")})
	assert.Equal(t, []string{"morning", "noon", "undated"}, names(got))

	got = Filter(recs, Filters{TimeFrom: tod("12:01")})
	assert.Equal(t, []string{"evening", "undated"}, names(got))

	got = Filter(recs, Filters{TimeFrom: tod("08:00"), DateFrom: at("2024-01-01 00:00")})
	assert.Equal(t, []string{"morning", "noon", "evening"}, names(got))
}

func TestParseTimeOfDay(t *testing.T) {
	v, err := ParseTimeOfDay("07:45")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(465), v)
	assert.Equal(t, "07:45", v.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestSort_SessionDateNullsLast(t *testing.T) {
	recs := []records.ResolvedRecord{
		rec("none1", nil),
		rec("b", at("2024-01-02 00:00")),
		rec("none2", nil),
		rec("a", at("2024-01-01 00:00")),
		rec("c", at("2024-01-03 00:00")),
	}

	asc := Sort(recs, SortSpec{Field: FieldSessionDate, Direction: Asc})
	assert.Equal(t, []string{"a", "b", "c", "none1", "none2"}, names(asc))

	desc := Sort(recs, SortSpec{Field: FieldSessionDate, Direction: Desc})
	assert.Equal(t, []string{"c", "b", "a", "none1", "none2"}, names(desc))

	assert.Equal(t, "none1", recs[0].Name, "input is not modified")
}

func TestSort_Strings(t *testing.T) {
	recs := []records.ResolvedRecord{rec("beta", nil), rec("Alpha", nil), rec("alpha", nil), rec("Gamma", nil)}

	asc := Sort(recs, SortSpec{Field: FieldName, Direction: Asc})
	assert.Equal(t, []string{"alpha", "Alpha", "beta", "Gamma"}, names(asc))

	desc := Sort(recs, SortSpec{Field: FieldName, Direction: Desc})
	assert.Equal(t, []string{"Gamma", "beta", "Alpha", "alpha"}, names(desc))
}

func TestSort_NumericAndStable(t *testing.T) {
	mk := func(name string, size int64) records.ResolvedRecord {
		r := rec(name, nil)
		r.Size = size
		return r
	}
	recs := []records.ResolvedRecord{mk("x", 20), mk("y", 10), mk("z", 20), mk("w", 5)}

	asc := Sort(recs, SortSpec{Field: FieldSize, Direction: Asc})
	assert.Equal(t, []string{"w", "y", "x", "z"}, names(asc))

	desc := Sort(recs, SortSpec{Field: FieldSize, Direction: Desc})
	assert.Equal(t, []string{"x", "z", "y", "w"}, names(desc), "ties keep their relative order")
}

func TestParseSortSpec(t *testing.T) {
	spec, err := ParseSortSpec("Session_Date", "")
	require.NoError(t, err)
	assert.Equal(t, SortSpec{Field: FieldSessionDate, Direction: Asc}, spec)

	_, err = ParseSortSpec("colour", "asc")
	assert.Error(t, err)
	_, err = ParseSortSpec("name", "sideways")
	assert.Error(t, err)
}

func TestPaginate_SecondPage(t *testing.T) {
	var recs []records.ResolvedRecord
	for i := 1; i <= 12; i++ {
		recs = append(recs, rec(fmt.Sprintf("r%02d", i), nil))
	}

	p := Paginate(recs, 2, 10)
	assert.Equal(t, []string{"r11", "r12"}, names(p.Records))
	assert.Equal(t, 12, p.TotalCount)
	assert.Equal(t, 2, p.TotalPages)

	empty := Paginate(recs, 3, 10)
	assert.Empty(t, empty.Records)
	assert.Equal(t, 2, empty.TotalPages)

	none := Paginate(nil, 1, 10)
	assert.Equal(t, 0, none.TotalPages)
	assert.Empty(t, none.Records)
}

func TestRun_PagesCoverResultExactlyOnce(t *testing.T) {
	var recs []records.ResolvedRecord
	for i := 0; i < 47; i++ {
		var session *time.Time
		if i%3 != 0 {
			session = at(fmt.Sprintf("2024-01-%02d 10:00", i%28+1))
		}
		recs = append(recs, rec(fmt.Sprintf("P%03d_%d.c3d", i%7, i), session))
	}

	filters := Filters{Search: "p00"}
	spec := SortSpec{Field: FieldSessionDate, Direction: Desc}
	want := Sort(Filter(recs, filters), spec)

	for _, size := range []int{1, 5, 10, 46, 100} {
		first := Run(recs, filters, spec, 1, size)
		var all []records.ResolvedRecord
		sum := 0
		for page := 1; page <= first.TotalPages; page++ {
			p := Run(recs, filters, spec, page, size)
			sum += len(p.Records)
			all = append(all, p.Records...)
		}
		assert.Equal(t, first.TotalCount, sum, "size %d", size)
		assert.Equal(t, names(want), names(all), "size %d", size)
	}
}

func TestView_ResetsPage(t *testing.T) {
	v := NewView(SortSpec{Field: FieldName, Direction: Asc})
	v.SetPage(3)
	assert.Equal(t, 3, v.Page())

	v.SetFilters(Filters{Search: "x"})
	assert.Equal(t, 1, v.Page())

	v.SetPage(2)
	v.SetSort(SortSpec{Field: FieldSize, Direction: Desc})
	assert.Equal(t, 1, v.Page())

	v.SetPage(-4)
	assert.Equal(t, 1, v.Page())
}

package query

import "github.com/mwantia/sessionbrowser/pkg/records"

// DefaultPageSize is used when no positive page size is configured.
const DefaultPageSize = 10

// Page is one page of the filtered, sorted result set.
type Page struct {
	Records    []records.ResolvedRecord
	TotalCount int
	TotalPages int
	Page       int
	PageSize   int
}

// Paginate returns the 1-indexed page of recs. Pages past the end are empty.
func Paginate(recs []records.ResolvedRecord, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(recs)
	p := Page{
		Records:    []records.ResolvedRecord{},
		TotalCount: total,
		TotalPages: (total + size - 1) / size,
		Page:       page,
		PageSize:   size,
	}

	start := (page - 1) * size
	if start >= total {
		return p
	}
	end := min(start+size, total)
	p.Records = recs[start:end]
	return p
}

// Run applies filter, sort and paginate in order.
func Run(recs []records.ResolvedRecord, f Filters, spec SortSpec, page, size int) Page {
	return Paginate(Sort(Filter(recs, f), spec), page, size)
}

// View holds the interactive query inputs. Changing filters or the sort
// resets the page to 1. A View is not safe for concurrent use.
type View struct {
	filters Filters
	sort    SortSpec
	page    int
}

// NewView creates a view on page 1 with the given sort.
func NewView(sort SortSpec) *View {
	return &View{sort: sort, page: 1}
}

func (v *View) Filters() Filters { return v.filters }
func (v *View) Sort() SortSpec   { return v.sort }
func (v *View) Page() int        { return v.page }

// SetFilters replaces the filters and returns to page 1.
func (v *View) SetFilters(f Filters) {
	v.filters = f
	v.page = 1
}

// SetSort replaces the sort and returns to page 1.
func (v *View) SetSort(s SortSpec) {
	v.sort = s
	v.page = 1
}

// SetPage moves to page p, clamped to at least 1.
func (v *View) SetPage(p int) {
	v.page = max(p, 1)
}

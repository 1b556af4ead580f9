package store

import (
	"fmt"
	"strings"
	"time"
)

// Filters narrows both retrieval channels before the limit is applied.
type Filters struct {
	DocumentIDs []int64
	TagIDs      []int64
	DateFrom    *time.Time
	DateTo      *time.Time
}

// Empty reports whether no filter is set.
func (f *Filters) Empty() bool {
	return f == nil ||
		(len(f.DocumentIDs) == 0 && len(f.TagIDs) == 0 && f.DateFrom == nil && f.DateTo == nil)
}

// Snapshot renders the filters for the search log.
func (f *Filters) Snapshot() map[string]any {
	if f.Empty() {
		return nil
	}
	snap := make(map[string]any)
	if len(f.DocumentIDs) > 0 {
		snap["document_ids"] = f.DocumentIDs
	}
	if len(f.TagIDs) > 0 {
		snap["tag_ids"] = f.TagIDs
	}
	if f.DateFrom != nil {
		snap["date_from"] = f.DateFrom.Format("2006-01-02")
	}
	if f.DateTo != nil {
		snap["date_to"] = f.DateTo.Format("2006-01-02")
	}
	return snap
}

// buildFilterSQL renders the filters as AND-joined conditions against the
// section alias "s" and document alias "d", numbering placeholders from
// argStart. It returns the SQL fragment (leading " AND ..." or empty) and
// the argument values.
func buildFilterSQL(f *Filters, argStart int) (string, []any) {
	if f.Empty() {
		return "", nil
	}

	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", argStart+len(args)-1)
	}

	if len(f.DocumentIDs) > 0 {
		conds = append(conds, fmt.Sprintf("s.document_id = ANY(%s)", next(f.DocumentIDs)))
	}
	if len(f.TagIDs) > 0 {
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM section_tags st WHERE st.section_id = s.id AND st.tag_id = ANY(%s))",
			next(f.TagIDs)))
	}
	if f.DateFrom != nil {
		conds = append(conds, fmt.Sprintf(
			"COALESCE(d.publication_date, d.created_at::date) >= %s", next(*f.DateFrom)))
	}
	if f.DateTo != nil {
		conds = append(conds, fmt.Sprintf(
			"COALESCE(d.publication_date, d.created_at::date) <= %s", next(*f.DateTo)))
	}

	return " AND " + strings.Join(conds, " AND "), args
}

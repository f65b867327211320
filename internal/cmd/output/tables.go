package output

import (
	"slices"
	"strconv"
	"time"

	"github.com/agentstation/atmap"
	"github.com/agentstation/atmap/pkg/regions"
	"github.com/agentstation/atmap/pkg/sources"
)

// SourcesTable lists bank sources.
func SourcesTable(srcs []sources.Source) Table {
	t := Table{Headers: []string{"ID", "Bank"}}
	for _, s := range srcs {
		t.Rows = append(t.Rows, []string{s.ID().String(), s.Name()})
	}
	return t
}

// RegionsTable lists regions.
func RegionsTable(rs []regions.Region) Table {
	t := Table{
		Headers: []string{"ID", "Slug", "Name"},
		Align:   []Align{AlignRight, AlignLeft, AlignLeft},
	}
	for _, r := range rs {
		t.Rows = append(t.Rows, []string{strconv.Itoa(r.ID), r.Slug(), r.Name})
	}
	return t
}

// RunTable lists the collections written by a run.
func RunTable(r *atmap.Result) Table {
	t := Table{
		Headers: []string{"Region", "Category", "Features", "Path"},
		Align:   []Align{AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
	for _, c := range r.Collections {
		t.Rows = append(t.Rows, []string{c.Region, c.Category, strconv.Itoa(c.Features), c.Path})
	}
	return t
}

// FetchTable lists per-source statistics of a run.
func FetchTable(r *sources.Result) Table {
	t := Table{
		Headers: []string{"Source", "Submitted", "Rejected", "Duration", "Error"},
		Align:   []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignLeft},
	}
	if r == nil {
		return t
	}
	ids := make([]sources.ID, 0, len(r.Stats))
	for id := range r.Stats {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s := r.Stats[id]
		errText := ""
		if s.Err != nil {
			errText = s.Err.Error()
		}
		t.Rows = append(t.Rows, []string{
			id.String(),
			strconv.Itoa(s.Submitted),
			strconv.Itoa(s.Rejected),
			s.Duration.Round(time.Millisecond).String(),
			errText,
		})
	}
	return t
}

// FixTable lists the files written by the fix pass.
func FixTable(r *atmap.FixResult) Table {
	t := Table{
		Headers: []string{"Fixed", "Features", "Changed"},
		Align:   []Align{AlignLeft, AlignRight, AlignRight},
	}
	for _, f := range r.Files {
		t.Rows = append(t.Rows, []string{f.Fixed, strconv.Itoa(f.Features), strconv.Itoa(f.Changed)})
	}
	return t
}

package tracker

import (
	"strings"

	"github.com/samber/lo"

	"github.com/aquasecurity/vuln-deb-status/version"
)

// fallbackRow is used when the anchor row of a package cannot be located.
const fallbackRow = 1

// RowRange is the slice of the status table owned by one source package.
// Rows with a 1-based position in (Start, End] belong to Package.
type RowRange struct {
	Package string `json:"package"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// Entry is a version and the status the tracker records for it.
type Entry struct {
	Version string `json:"version"`
	Status  string `json:"status"`
}

// Resolved is the authoritative entry of one package in one release.
type Resolved struct {
	Package string `json:"package"`
	Release string `json:"release"`
	Entry
}

var (
	notAvailable = Entry{Version: Unset.String(), Status: Unset.String()}
	notFound     = Entry{Version: NoMatch.String(), Status: NoMatch.String()}
)

// Segment computes the row range of every source package of the status
// table, in order of first appearance. It returns nil when the page has no
// status table or the table lists no package.
func Segment(doc Document) []RowRange {
	rows, ok := doc.StatusTable()
	if !ok {
		return nil
	}
	return segment(rows)
}

func segment(rows []Row) []RowRange {
	packages := packageNames(rows)
	total := len(rows)

	var ranges []RowRange
	for i, pkg := range packages {
		r := RowRange{Package: pkg}
		switch {
		case i == 0:
			r.Start = 1
			if len(packages) >= 2 {
				r.End = anchorRow(rows, packages[i+1])
			} else {
				r.End = total
			}
		case i == len(packages)-1:
			r.Start = anchorRow(rows, pkg)
			r.End = total
		default:
			r.Start = anchorRow(rows, pkg)
			r.End = anchorRow(rows, packages[i+1])
		}
		ranges = append(ranges, r)
	}
	return ranges
}

func packageNames(rows []Row) []string {
	var names []string
	for _, row := range rows {
		names = append(names, row.Packages...)
	}
	return lo.Uniq(lo.Compact(names))
}

// anchorRow returns the number of rows preceding the first row that
// anchors pkg, or fallbackRow when there is no such row.
func anchorRow(rows []Row, pkg string) int {
	for i, row := range rows {
		if lo.Contains(row.Packages, pkg) {
			return i
		}
	}
	return fallbackRow
}

// Extract returns the entries recorded for release within r, in table
// order. The release cell is matched as a substring, so "buster" also
// selects "buster (security)". A package without any row for the release
// yields the single "not found" entry.
func Extract(doc Document, r RowRange, release string) []Entry {
	rows, _ := doc.StatusTable()
	return extract(rows, r, release)
}

func extract(rows []Row, r RowRange, release string) []Entry {
	var (
		entries []Entry
		index   = map[string]int{}
	)
	for pos := r.Start + 1; pos <= r.End && pos <= len(rows); pos++ {
		if pos < 1 {
			continue
		}
		row := rows[pos-1]
		rel, ok := row.Cell(2)
		if !ok || !strings.Contains(rel, release) {
			continue
		}
		ver, ok := row.Cell(3)
		if !ok {
			continue
		}
		status, ok := row.Cell(4)
		if !ok {
			status = Unset.String()
		}

		// a version listed twice keeps its first position and its last status
		if i, seen := index[ver]; seen {
			entries[i].Status = status
			continue
		}
		index[ver] = len(entries)
		entries = append(entries, Entry{Version: ver, Status: status})
	}
	if len(entries) == 0 {
		return []Entry{notFound}
	}
	return entries
}

// Resolve picks the greatest version among entries with a single left to
// right scan against the current best. The "not found" sentinel is
// returned as is and no entries resolve to "N/A".
func Resolve(entries []Entry) Entry {
	if len(entries) == 0 {
		return notAvailable
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if version.IsGreater(e.Version, best.Version) {
			best = e
		}
	}
	return best
}

// ResolveRelease resolves the entry of pkg in release. A package that is
// not part of ranges resolves to "N/A".
func ResolveRelease(doc Document, ranges []RowRange, pkg, release string) Resolved {
	res := Resolved{Package: pkg, Release: release, Entry: notAvailable}
	r, ok := lo.Find(ranges, func(r RowRange) bool {
		return r.Package == pkg
	})
	if !ok {
		return res
	}
	res.Entry = Resolve(Extract(doc, r, release))
	return res
}

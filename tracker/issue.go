package tracker

import (
	"regexp"
	"strings"
)

// SidRelease is the rolling development release of Debian.
const SidRelease = "sid"

var (
	newlines = regexp.MustCompile(`\n+`)
	tabs     = regexp.MustCompile(`\t+`)
)

// AdvisoryRecord is the verdict of one CVE for one source package.
type AdvisoryRecord struct {
	CVE                  string `json:"cve"`
	Description          string `json:"description"`
	Href                 string `json:"href"`
	CurrentVersion       string `json:"current_version"`
	StatusCurrentVersion string `json:"status_current_version"`
	MaxVersion           string `json:"max_version"`
	StatusMaxVersion     string `json:"status_max_version"`
	NewVersion           string `json:"new_version"`
	StatusNewVersion     string `json:"status_new_version"`
	SidVersion           string `json:"sid_version"`
	StatusSidVersion     string `json:"status_sid_version"`
}

// Query selects what Build extracts from a CVE page.
type Query struct {
	CVE              string
	SourcePackage    string
	Release          string
	NewRelease       string
	InstalledVersion string
}

// Build assembles the advisory record of q.SourcePackage from a CVE page.
func Build(doc Document, q Query) AdvisoryRecord {
	ranges := Segment(doc)
	current := ResolveRelease(doc, ranges, q.SourcePackage, q.Release)
	next := ResolveRelease(doc, ranges, q.SourcePackage, q.NewRelease)
	sid := ResolveRelease(doc, ranges, q.SourcePackage, SidRelease)

	return AdvisoryRecord{
		CVE:                  q.CVE,
		Description:          Description(doc),
		Href:                 CVEURL(trackerURL, q.CVE),
		CurrentVersion:       q.InstalledVersion,
		StatusCurrentVersion: VersionStatus(doc, q.InstalledVersion),
		MaxVersion:           current.Version,
		StatusMaxVersion:     current.Status,
		NewVersion:           next.Version,
		StatusNewVersion:     next.Status,
		SidVersion:           sid.Version,
		StatusSidVersion:     sid.Status,
	}
}

// Unavailable is the record of a CVE whose page could not be retrieved.
func Unavailable(q Query) AdvisoryRecord {
	na := Unset.String()
	return AdvisoryRecord{
		CVE:                  q.CVE,
		Description:          na,
		Href:                 CVEURL(trackerURL, q.CVE),
		CurrentVersion:       q.InstalledVersion,
		StatusCurrentVersion: na,
		MaxVersion:           na,
		StatusMaxVersion:     na,
		NewVersion:           na,
		StatusNewVersion:     na,
		SidVersion:           na,
		StatusSidVersion:     na,
	}
}

// Description returns the normalized CVE description of the page.
func Description(doc Document) string {
	desc, ok := doc.LabelledCell("Description")
	if !ok {
		desc = NoMatch.String()
	}
	return NormalizeText(desc)
}

// VersionStatus returns the status recorded next to the first mention of v.
func VersionStatus(doc Document, v string) string {
	status, ok := doc.CellAfter(v)
	if !ok {
		return NoMatch.String()
	}
	return strings.TrimSpace(status)
}

// NormalizeText flattens s to a single line safe for ';' separated reports.
func NormalizeText(s string) string {
	s = newlines.ReplaceAllString(s, " ")
	s = tabs.ReplaceAllString(s, " ")
	s = strings.Trim(s, " ")
	return strings.ReplaceAll(s, ";", ".")
}

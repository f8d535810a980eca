// Package sca reads the vulnerabilities found by an SCA6 scan of the host
// and marks the matching issues of a report.
package sca

import (
	"io"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cheggaaa/pb/v3"
	"golang.org/x/net/html"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-deb-status/report"
	"github.com/aquasecurity/vuln-deb-status/tracker"
	"github.com/aquasecurity/vuln-deb-status/utils"
)

const (
	// a vulnerability of the detailed report spans this many rows
	groupSize = 10
	// rows describing the report itself
	preambleRows = 2

	emptyCell = "-"
)

// Finding is a vulnerability reported by SCA6. The short report only
// carries the CVE.
type Finding struct {
	CVE         string `json:"cve"`
	Level       string `json:"sca6_level"`
	Package     string `json:"sca6_package"`
	Version     string `json:"sca6_version"`
	Description string `json:"sca6_description"`
}

// Parse reads an SCA6 HTML report, in its detailed layout when full is set.
func Parse(r io.Reader, full bool) ([]Finding, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, xerrors.Errorf("unable to parse the SCA6 report: %w", err)
	}
	if full {
		return ParseFull(doc), nil
	}
	return ParseSmall(doc), nil
}

// ParseSmall lists the CVEs of the short report.
func ParseSmall(doc *goquery.Document) []Finding {
	var findings []Finding
	doc.Find("table.table tbody td").Each(func(_ int, td *goquery.Selection) {
		for _, text := range ownTexts(td.Nodes[0]) {
			if strings.Contains(text, "CVE-") {
				findings = append(findings, Finding{CVE: text})
			}
		}
	})
	return findings
}

// ParseFull reads the detailed report. Its value column is a flat stream
// where every vulnerability takes groupSize rows: the CVE first, then the
// level at 2, "package version" at 3 and the description at 9.
func ParseFull(doc *goquery.Document) []Finding {
	var values []string
	doc.Find("table.table-vulnerabilities tbody tr > td:nth-of-type(3)").Each(func(_ int, td *goquery.Selection) {
		texts := ownTexts(td.Nodes[0])
		if len(texts) == 0 {
			texts = []string{emptyCell}
		}
		values = append(values, texts...)
	})
	if len(values) <= preambleRows {
		return nil
	}
	values = values[preambleRows:]

	at := func(group []string, i int) string {
		if i < len(group) {
			return group[i]
		}
		return tracker.Unset.String()
	}

	var findings []Finding
	for i := 0; i < len(values); i += groupSize {
		group := values[i:min(i+groupSize, len(values))]
		pkg, ver := splitComponent(at(group, 3))
		findings = append(findings, Finding{
			CVE:         at(group, 0),
			Level:       at(group, 2),
			Package:     pkg,
			Version:     ver,
			Description: normalizeDescription(at(group, 9)),
		})
	}
	return findings
}

func splitComponent(s string) (string, string) {
	fields := strings.Split(s, " ")
	if len(fields) < 2 {
		return s, tracker.Unset.String()
	}
	return fields[0], fields[1]
}

func normalizeDescription(s string) string {
	s = strings.ReplaceAll(s, ";", ".")
	return strings.ReplaceAll(s, "\n", "|-> ")
}

// ownTexts returns the non-blank text nodes directly under n, trimmed.
func ownTexts(n *html.Node) []string {
	var texts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		if t := utils.TrimSpaceNewline(c.Data); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}

// Matches reports whether f refers to an issue of pkg. A finding without
// a package matches on the CVE alone.
func (f Finding) Matches(pkg report.Package, cve string) bool {
	if f.CVE != cve {
		return false
	}
	return strings.Contains(pkg.Package, f.Package) || strings.Contains(pkg.Source, f.Package)
}

// Saturate marks every issue of t reported by a finding and returns the
// number of marked issues.
func Saturate(t *report.Target, findings []Finding) int {
	var marked int
	bar := pb.StartNew(len(findings))
	for _, f := range findings {
		for i := range t.Packages {
			pkg := &t.Packages[i]
			for j := range pkg.Issues {
				issue := &pkg.Issues[j]
				if !f.Matches(*pkg, issue.CVE) {
					continue
				}
				if issue.Saturation.SCA6 == nil {
					marked++
				}
				issue.Saturation.SCA6 = &report.SCA{SCA: "yes", Level: f.Level}
			}
		}
		bar.Increment()
	}
	bar.Finish()
	log.Printf("SCA6: %d findings marked %d issues", len(findings), marked)
	return marked
}

package tracker

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/xerrors"
)

// Issue is a CVE listed on a source package page.
type Issue struct {
	CVE             string
	Table           string
	MiniDescription string
	Href            string
}

// SourcePage is a parsed /tracker/source-package/<name> page.
type SourcePage struct {
	doc *goquery.Document
}

func ParseSourcePage(r io.Reader) (*SourcePage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, xerrors.Errorf("unable to parse the source package page: %w", err)
	}
	return &SourcePage{doc: doc}, nil
}

// Tables returns the section headings of the page, e.g. "Open issues".
func (p *SourcePage) Tables() []string {
	var tables []string
	p.doc.Find("h2").Each(func(_ int, h2 *goquery.Selection) {
		if t := strings.TrimSpace(h2.Text()); t != "" {
			tables = append(tables, t)
		}
	})
	return tables
}

// CVEs returns the CVE identifiers of the table following heading.
func (p *SourcePage) CVEs(heading string) []string {
	var cves []string
	p.doc.Find("h2").FilterFunction(func(_ int, h2 *goquery.Selection) bool {
		return strings.TrimSpace(h2.Text()) == heading
	}).First().Each(func(_ int, h2 *goquery.Selection) {
		table := followingElement(h2.Nodes[0], "table")
		if table == nil {
			return
		}
		p.doc.FindNodes(table).Find("a").Each(func(_ int, a *goquery.Selection) {
			if t := strings.TrimSpace(a.Text()); strings.Contains(t, "CVE-") {
				cves = append(cves, t)
			}
		})
	})
	return cves
}

// MiniDescription returns the short description listed in the row of cve.
func (p *SourcePage) MiniDescription(cve string) string {
	a := p.doc.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		return strings.TrimSpace(a.Text()) == cve
	}).First()
	if a.Length() == 0 {
		return NoMatch.String()
	}
	td := a.Closest("tr").ChildrenFiltered("td").Last()
	if td.Length() == 0 {
		return NoMatch.String()
	}
	desc, ok := firstText(td.Nodes[0])
	if !ok {
		return NoMatch.String()
	}
	return NormalizeText(desc)
}

// Issues lists every CVE of every table of the page.
func (p *SourcePage) Issues(baseURL string) []Issue {
	var issues []Issue
	for _, table := range p.Tables() {
		for _, cve := range p.CVEs(table) {
			issues = append(issues, Issue{
				CVE:             cve,
				Table:           table,
				MiniDescription: p.MiniDescription(cve),
				Href:            CVEURL(baseURL, cve),
			})
		}
	}
	return issues
}

// followingElement returns the first element named tag after n in
// document order, outside of n's subtree.
func followingElement(n *html.Node, tag string) *html.Node {
	for c := following(n); c != nil; c = next(c) {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
	}
	return nil
}

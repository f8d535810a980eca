package tracker

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/xerrors"
)

const (
	statusTableHeader = "Source Package"
	sourcePackageHref = "/source-package/"
)

// Document is a read-only view of one parsed tracker CVE page.
//
// Every lookup reports whether it matched; callers choose their own
// default when it did not.
type Document interface {
	// StatusTable returns every row of the "Source Package" table, header
	// row included, in table order.
	StatusTable() ([]Row, bool)

	// LabelledCell returns the first text of the last cell of the row
	// labelled with a bold label, e.g. "Description".
	LabelledCell(label string) (string, bool)

	// CellAfter returns the first text of the cell following the first
	// element whose own text contains s.
	CellAfter(s string) (string, bool)
}

// Row is one <tr> of the status table.
type Row struct {
	// Cells holds the trimmed text of each <td>. Header rows have none.
	Cells []string

	// Packages holds the source package anchors of the row.
	Packages []string
}

// Cell returns the text of the n-th data cell, 1-based.
func (r Row) Cell(n int) (string, bool) {
	if n < 1 || n > len(r.Cells) {
		return "", false
	}
	return r.Cells[n-1], true
}

type HTMLDocument struct {
	doc   *goquery.Document
	rows  []Row
	table bool
}

func NewDocument(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, xerrors.Errorf("unable to parse the tracker page: %w", err)
	}
	return NewDocumentFromGoquery(doc), nil
}

func NewDocumentFromGoquery(doc *goquery.Document) *HTMLDocument {
	d := &HTMLDocument{doc: doc}
	d.rows, d.table = parseStatusTable(doc)
	return d
}

func (d *HTMLDocument) StatusTable() ([]Row, bool) {
	return d.rows, d.table
}

func (d *HTMLDocument) LabelledCell(label string) (string, bool) {
	b := d.doc.Find("table b").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == label
	}).First()
	if b.Length() == 0 {
		return "", false
	}
	td := b.Closest("tr").ChildrenFiltered("td").Last()
	if td.Length() == 0 {
		return "", false
	}
	return firstText(td.Nodes[0])
}

func (d *HTMLDocument) CellAfter(s string) (string, bool) {
	if s == "" || len(d.doc.Nodes) == 0 {
		return "", false
	}
	m := findOwnText(d.doc.Nodes[0], s)
	if m == nil {
		return "", false
	}
	for n := following(m); n != nil; n = next(n) {
		if n.Type == html.ElementNode && n.Data == "td" {
			return firstText(n)
		}
	}
	return "", false
}

func parseStatusTable(doc *goquery.Document) ([]Row, bool) {
	var (
		rows  []Row
		found bool
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		header := table.Find("th").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) == statusTableHeader
		})
		if header.Length() == 0 {
			return true
		}
		found = true
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var row Row
			tr.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
				row.Cells = append(row.Cells, strings.TrimSpace(td.Text()))
			})
			tr.Find("a").Each(func(_ int, a *goquery.Selection) {
				if href, _ := a.Attr("href"); strings.Contains(href, sourcePackageHref) {
					row.Packages = append(row.Packages, strings.TrimSpace(a.Text()))
				}
			})
			rows = append(rows, row)
		})
		return false
	})
	return rows, found
}

// firstText returns the first non-blank text node under n.
func firstText(n *html.Node) (string, bool) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			return n.Data, true
		}
		return "", false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t, ok := firstText(c); ok {
			return t, true
		}
	}
	return "", false
}

// findOwnText returns the first element in document order whose first
// direct text node contains s.
func findOwnText(n *html.Node, s string) *html.Node {
	for ; n != nil; n = next(n) {
		if n.Type != html.ElementNode {
			continue
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				if strings.Contains(c.Data, s) {
					return n
				}
				break
			}
		}
	}
	return nil
}

// next walks the tree in document order.
func next(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	return following(n)
}

// following returns the first node after n that is not one of its descendants.
func following(n *html.Node) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

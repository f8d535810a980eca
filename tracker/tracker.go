// Package tracker scrapes the Debian security tracker.
//
// The CVE page's "Source Package" table is irregular: only the first row
// of every package carries its name, the following rows list one release
// each until the next package starts. Segment, Extract and Resolve turn
// that table into one version and status per package and release.
package tracker

import (
	"bytes"
	"fmt"
	"log"
	"net/url"
	"strings"

	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-deb-status/utils"
)

const (
	trackerURL = "https://security-tracker.debian.org/tracker"
	retry      = 5
)

type options struct {
	baseURL string
	retry   int
}

type option func(*options)

func WithBaseURL(url string) option {
	return func(opts *options) {
		opts.baseURL = url
	}
}

func WithRetry(retry int) option {
	return func(opts *options) {
		opts.retry = retry
	}
}

type Client struct {
	*options
}

func NewClient(opts ...option) Client {
	o := &options{
		baseURL: trackerURL,
		retry:   retry,
	}
	for _, opt := range opts {
		opt(o)
	}
	return Client{options: o}
}

// CVEURL returns the tracker page of a CVE.
func CVEURL(baseURL, cve string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(baseURL, "/"), cve)
}

// SourcePackageURL returns the tracker page of a source package.
func SourcePackageURL(baseURL, pkg string) string {
	return fmt.Sprintf("%s/source-package/%s", strings.TrimSuffix(baseURL, "/"), url.PathEscape(pkg))
}

// CVE fetches the page of q.CVE and builds its advisory record. A page
// answering with a non-200 status yields the all "N/A" record; transport
// errors are returned once the retries are exhausted.
func (c Client) CVE(q Query) (AdvisoryRecord, error) {
	u := CVEURL(c.baseURL, q.CVE)
	b, err := utils.FetchURL(u, "", c.retry)
	if err != nil {
		var se *utils.StatusError
		if xerrors.As(err, &se) {
			log.Printf("Debian tracker: %s", se)
			rec := Unavailable(q)
			rec.Href = u
			return rec, nil
		}
		return AdvisoryRecord{}, xerrors.Errorf("unable to fetch %s: %w", q.CVE, err)
	}

	doc, err := NewDocument(bytes.NewReader(b))
	if err != nil {
		return AdvisoryRecord{}, xerrors.Errorf("%s: %w", q.CVE, err)
	}
	rec := Build(doc, q)
	rec.Href = u
	return rec, nil
}

// Issues fetches the page of a source package and lists its CVEs. A page
// answering with a non-200 status has no issues.
func (c Client) Issues(pkg string) ([]Issue, error) {
	u := SourcePackageURL(c.baseURL, pkg)
	b, err := utils.FetchURL(u, "", c.retry)
	if err != nil {
		var se *utils.StatusError
		if xerrors.As(err, &se) {
			log.Printf("Debian tracker: %s", se)
			return nil, nil
		}
		return nil, xerrors.Errorf("unable to fetch source package %s: %w", pkg, err)
	}

	page, err := ParseSourcePage(bytes.NewReader(b))
	if err != nil {
		return nil, xerrors.Errorf("source package %s: %w", pkg, err)
	}
	return page.Issues(c.baseURL), nil
}

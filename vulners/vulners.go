// Package vulners enriches the vulnerable issues of a report with the
// vulners.com view of their CVE.
package vulners

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/cheggaaa/pb/v3"
	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-deb-status/report"
	"github.com/aquasecurity/vuln-deb-status/tracker"
	"github.com/aquasecurity/vuln-deb-status/utils"
)

const (
	vulnersURL = "https://vulners.com"
	retry      = 5

	datePublishedFormat = "2006-01-02"
)

var (
	// ErrNoDocument is returned when vulners.com knows nothing about a CVE.
	ErrNoDocument = xerrors.New("no vulners.com document")

	// only issues still affecting the current release are looked up
	lookupStatuses = []string{"vulnerable", "undetermined"}
)

type options struct {
	baseURL string
	apiKey  string
	retry   int
}

type option func(*options)

func WithBaseURL(url string) option {
	return func(opts *options) {
		opts.baseURL = url
	}
}

func WithAPIKey(key string) option {
	return func(opts *options) {
		opts.apiKey = key
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
		baseURL: vulnersURL,
		retry:   retry,
	}
	for _, opt := range opts {
		opt(o)
	}
	return Client{options: o}
}

type response struct {
	Result string `json:"result"`
	Data   struct {
		Documents map[string]document `json:"documents"`
		Error     string              `json:"error"`
	} `json:"data"`
}

type document struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Published   *string `json:"published"`
	CVSS2       struct {
		CVSSV2 *cvss `json:"cvssV2"`
	} `json:"cvss2"`
	CVSS3 struct {
		CVSSV3 *cvss `json:"cvssV3"`
	} `json:"cvss3"`
	Enchantments struct {
		Dependencies struct {
			References []reference `json:"references"`
		} `json:"dependencies"`
	} `json:"enchantments"`
}

type reference struct {
	Type string `json:"type"`
}

type cvss struct {
	AccessVector *string     `json:"accessVector"`
	AttackVector *string     `json:"attackVector"`
	BaseScore    json.Number `json:"baseScore"`
}

// Document looks cve up on vulners.com. distr prefixes the identifier of
// the distribution specific bulletin the hrefs point to.
func (c Client) Document(distr, cve string) (report.Vulners, error) {
	id := fmt.Sprintf("%sCVE:%s", strings.ToUpper(distr), cve)
	info := report.Vulners{
		CVE:     cve,
		HrefAPI: fmt.Sprintf("%s/api/v3/search/id/?id=%s", vulnersURL, id),
		HrefWeb: fmt.Sprintf("%s/%scve/%s", vulnersURL, strings.ToLower(distr), id),
	}

	u := fmt.Sprintf("%s/api/v3/search/id/?id=%s", strings.TrimSuffix(c.baseURL, "/"), url.QueryEscape(cve))
	b, err := utils.FetchURL(u, c.apiKey, c.retry)
	if err != nil {
		return unavailable(info), xerrors.Errorf("unable to fetch %s: %w", cve, err)
	}

	var res response
	if err = json.Unmarshal(b, &res); err != nil {
		return unavailable(info), xerrors.Errorf("unable to decode the vulners.com answer for %s: %w", cve, err)
	}
	doc, ok := res.Data.Documents[cve]
	if res.Result != "OK" || !ok {
		if res.Data.Error != "" {
			return unavailable(info), xerrors.Errorf("%s (%s): %w", cve, res.Data.Error, ErrNoDocument)
		}
		return unavailable(info), xerrors.Errorf("%s: %w", cve, ErrNoDocument)
	}
	return fill(info, doc), nil
}

func fill(info report.Vulners, doc document) report.Vulners {
	notFound := tracker.NoMatch.String()

	info.Description = lo.FromPtrOr(doc.Description, notFound)
	info.DatePublished = publishedDate(lo.FromPtrOr(doc.Published, notFound))
	info.CVSS2Score, info.CVSS2AccessVector = notFound, notFound
	if v2 := doc.CVSS2.CVSSV2; v2 != nil {
		info.CVSS2Score = score(v2.BaseScore)
		info.CVSS2AccessVector = lo.FromPtrOr(v2.AccessVector, notFound)
	}
	info.CVSS3Score, info.CVSS3AttackVector = notFound, notFound
	if v3 := doc.CVSS3.CVSSV3; v3 != nil {
		info.CVSS3Score = score(v3.BaseScore)
		info.CVSS3AttackVector = lo.FromPtrOr(v3.AttackVector, notFound)
	}
	info.StatusVulners = "yes"
	info.StatusNessus = "no"
	if lo.ContainsBy(doc.Enchantments.Dependencies.References, func(ref reference) bool {
		return ref.Type == "nessus"
	}) {
		info.StatusNessus = "yes"
	}
	return info
}

func score(n json.Number) string {
	if n == "" {
		return tracker.NoMatch.String()
	}
	return n.String()
}

func publishedDate(s string) string {
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return s
	}
	return t.Format(datePublishedFormat)
}

func unavailable(info report.Vulners) report.Vulners {
	na := tracker.Unset.String()
	info.Description = na
	info.DatePublished = na
	info.CVSS2Score, info.CVSS2AccessVector = na, na
	info.CVSS3Score, info.CVSS3AttackVector = na, na
	info.StatusVulners = "no"
	info.StatusNessus = na
	return info
}

// Saturate attaches the vulners.com document to every issue of t still
// affecting the current release. A failed lookup is logged and recorded as
// unavailable.
func (c Client) Saturate(t *report.Target) {
	bar := pb.StartNew(len(t.Packages))
	for i := range t.Packages {
		pkg := &t.Packages[i]
		for j := range pkg.Issues {
			issue := &pkg.Issues[j]
			issue.Saturation.VUL = nil
			if !NeedsLookup(issue.StatusMaxVersion) {
				continue
			}
			info, err := c.Document(t.Distr, issue.CVE)
			if err != nil {
				log.Printf("vulners.com: %s", err)
			}
			issue.Saturation.VUL = &info
		}
		bar.Increment()
	}
	bar.Finish()
}

// NeedsLookup reports whether an issue with the given current release
// status is worth enriching.
func NeedsLookup(status string) bool {
	return lo.SomeBy(lookupStatuses, func(s string) bool {
		return strings.Contains(status, s)
	})
}

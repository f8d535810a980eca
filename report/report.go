// Package report holds the aggregated vulnerability database of a host and
// renders it as CSV.
package report

import (
	"github.com/aquasecurity/vuln-deb-status/packages"
	"github.com/aquasecurity/vuln-deb-status/tracker"
)

// Target is the vulnerability database of one host.
type Target struct {
	Distr      string    `json:"distr"`
	Release    string    `json:"release"`
	NewRelease string    `json:"new_release"`
	Packages   []Package `json:"packages"`
}

// Package is an installed package and the issues of its source package.
type Package struct {
	packages.Info
	Issues []Issue `json:"issues"`
}

// Issue is one CVE of a source package.
type Issue struct {
	tracker.AdvisoryRecord
	Tables          string     `json:"tables"`
	MiniDescription string     `json:"mini_description"`
	Saturation      Saturation `json:"soturation"`
}

// Saturation holds the secondary feeds an issue was enriched with.
type Saturation struct {
	VUL  *Vulners `json:"VUL,omitempty"`
	SCA6 *SCA     `json:"SCA6,omitempty"`
}

// Vulners is the vulners.com view of a CVE.
type Vulners struct {
	CVE               string `json:"cve"`
	Description       string `json:"description"`
	HrefAPI           string `json:"href_api"`
	HrefWeb           string `json:"href_web"`
	DatePublished     string `json:"date_published"`
	CVSS2Score        string `json:"cvss2_score"`
	CVSS2AccessVector string `json:"cvss2_access_vector"`
	CVSS3Score        string `json:"cvss3_score"`
	CVSS3AttackVector string `json:"cvss3_attack_vector"`
	StatusVulners     string `json:"status_vulners"`
	StatusNessus      string `json:"status_nessus"`
}

// SCA marks an issue also reported by an SCA6 scan.
type SCA struct {
	SCA   string `json:"sca"`
	Level string `json:"level"`
}

// NewIssue returns a source package issue not yet checked against its CVE page.
func NewIssue(i tracker.Issue, currentVersion string) Issue {
	rec := tracker.Unavailable(tracker.Query{CVE: i.CVE, InstalledVersion: currentVersion})
	rec.Href = i.Href
	return Issue{
		AdvisoryRecord:  rec,
		Tables:          i.Table,
		MiniDescription: i.MiniDescription,
	}
}

// Merge copies the CVE page verdict into the issue.
func (i *Issue) Merge(rec tracker.AdvisoryRecord) {
	i.AdvisoryRecord = rec
}

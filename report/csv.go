package report

import (
	"encoding/csv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-deb-status/tracker"
)

const (
	csvDelimiter = ';'
	missing      = "-"
)

var (
	header = []string{
		"distr", "release", "new_release", "",
		"package", "package_source", "package_arch", "",
		"cve", "table", "",
		"current_version", "status_current_version",
		"max_version", "status_max_version",
		"new_version", "status_new_version",
		"sid_version", "status_sid_version", "",
		"vulners_com", "date_published",
		"cvss2_score", "cvss2_access_vector",
		"cvss3_score", "cvss3_attack_vector", "",
		"nessus", "",
		"sca6", "sca6_level", "",
		"package_description", "package_href",
		"cve_description", "cve_href",
	}

	// issues whose current release verdict contains one of these are not reported
	excludedStatuses = []string{tracker.NoMatch.String(), "fixed"}
)

// Header returns the CSV header row.
func Header() []string {
	return append([]string(nil), header...)
}

// Rows flattens the target to one row per reportable issue.
func Rows(t Target) [][]string {
	var rows [][]string
	for _, pkg := range t.Packages {
		issues := lo.Filter(pkg.Issues, func(i Issue, _ int) bool {
			return reportable(i.StatusMaxVersion)
		})
		for _, issue := range issues {
			rows = append(rows, row(t, pkg, issue))
		}
	}
	return rows
}

func reportable(status string) bool {
	status = strings.ToLower(status)
	return !lo.SomeBy(excludedStatuses, func(s string) bool {
		return strings.Contains(status, s)
	})
}

func row(t Target, pkg Package, issue Issue) []string {
	vul := Vulners{
		StatusVulners:     missing,
		DatePublished:     missing,
		CVSS2Score:        missing,
		CVSS2AccessVector: missing,
		CVSS3Score:        missing,
		CVSS3AttackVector: missing,
		StatusNessus:      missing,
	}
	if issue.Saturation.VUL != nil {
		vul = *issue.Saturation.VUL
	}
	sca := SCA{SCA: missing, Level: missing}
	if issue.Saturation.SCA6 != nil {
		sca = *issue.Saturation.SCA6
	}
	href := issue.Href
	if href == "" {
		href = missing
	}

	return []string{
		t.Distr, t.Release, t.NewRelease, "",
		pkg.Package, pkg.Source, pkg.Arch, "",
		issue.CVE, issue.Tables, "",
		issue.CurrentVersion, issue.StatusCurrentVersion,
		issue.MaxVersion, issue.StatusMaxVersion,
		issue.NewVersion, issue.StatusNewVersion,
		issue.SidVersion, issue.StatusSidVersion, "",
		vul.StatusVulners, vul.DatePublished,
		vul.CVSS2Score, vul.CVSS2AccessVector,
		vul.CVSS3Score, vul.CVSS3AttackVector, "",
		vul.StatusNessus, "",
		sca.SCA, sca.Level, "",
		pkg.Description, pkg.Href,
		issue.MiniDescription, href,
	}
}

// WriteCSV writes the header and the rows of t to path.
func WriteCSV(fs afero.Fs, path string, t Target) error {
	f, err := fs.Create(path)
	if err != nil {
		return xerrors.Errorf("unable to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = csvDelimiter
	if err = w.Write(header); err != nil {
		return xerrors.Errorf("csv write error: %w", err)
	}
	if err = w.WriteAll(Rows(t)); err != nil {
		return xerrors.Errorf("csv write error: %w", err)
	}
	return nil
}

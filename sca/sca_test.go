package sca_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/vuln-deb-status/packages"
	"github.com/aquasecurity/vuln-deb-status/report"
	"github.com/aquasecurity/vuln-deb-status/sca"
	"github.com/aquasecurity/vuln-deb-status/tracker"
)

func parseFile(t *testing.T, name string, full bool) []sca.Finding {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()

	findings, err := sca.Parse(f, full)
	require.NoError(t, err)
	return findings
}

func TestParseSmall(t *testing.T) {
	got := parseFile(t, "small.html", false)
	assert.Equal(t, []sca.Finding{
		{CVE: "CVE-2013-0340"},
		{CVE: "CVE-2019-5188"},
	}, got)
}

func TestParseFull(t *testing.T) {
	got := parseFile(t, "full.html", true)
	assert.Equal(t, []sca.Finding{
		{
			CVE:     "CVE-2013-0340",
			Level:   "High",
			Package: "expat",
			Version: "2.2.6",
			Description: "expat 2.1.0 and earlier. does not properly handle entities expansion" +
				"|-> unless an application developer uses XML_SetEntityDeclHandler",
		},
		{
			CVE:         "CVE-2019-5188",
			Level:       "Medium",
			Package:     "libext2fs",
			Version:     "1.44.5",
			Description: "A code execution vulnerability exists in the directory rehashing functionality of E2fsprogs.",
		},
		{
			// truncated group
			CVE:         "CVE-2018-25032",
			Level:       "Low",
			Package:     "zlib",
			Version:     "N/A",
			Description: "N/A",
		},
	}, got)
}

func TestParseFull_NoVulnerabilities(t *testing.T) {
	assert.Empty(t, parseFile(t, "small.html", true))
}

func TestSaturate(t *testing.T) {
	issue := func(cve string) report.Issue {
		return report.Issue{AdvisoryRecord: tracker.AdvisoryRecord{CVE: cve}}
	}
	target := report.Target{
		Packages: []report.Package{
			{
				Info:   packageInfo("libexpat1", "expat"),
				Issues: []report.Issue{issue("CVE-2013-0340"), issue("CVE-2022-40674")},
			},
			{
				Info:   packageInfo("libext2fs2", "e2fsprogs"),
				Issues: []report.Issue{issue("CVE-2019-5188")},
			},
			{
				Info:   packageInfo("zlib1g", "zlib"),
				Issues: []report.Issue{issue("CVE-2013-0340")},
			},
		},
	}

	marked := sca.Saturate(&target, parseFile(t, "full.html", true))
	assert.Equal(t, 2, marked)

	assert.Equal(t, &report.SCA{SCA: "yes", Level: "High"}, target.Packages[0].Issues[0].Saturation.SCA6)
	assert.Nil(t, target.Packages[0].Issues[1].Saturation.SCA6)
	assert.Equal(t, &report.SCA{SCA: "yes", Level: "Medium"}, target.Packages[1].Issues[0].Saturation.SCA6)
	// same CVE, other package
	assert.Nil(t, target.Packages[2].Issues[0].Saturation.SCA6)
}

func TestFinding_Matches(t *testing.T) {
	pkg := report.Package{Info: packageInfo("libexpat1", "expat")}
	tests := []struct {
		name    string
		finding sca.Finding
		cve     string
		want    bool
	}{
		{name: "source name", finding: sca.Finding{CVE: "CVE-1", Package: "expat"}, cve: "CVE-1", want: true},
		{name: "binary name", finding: sca.Finding{CVE: "CVE-1", Package: "libexpat"}, cve: "CVE-1", want: true},
		{name: "other CVE", finding: sca.Finding{CVE: "CVE-1", Package: "expat"}, cve: "CVE-2"},
		{name: "other package", finding: sca.Finding{CVE: "CVE-1", Package: "zlib"}, cve: "CVE-1"},
		{name: "short report", finding: sca.Finding{CVE: "CVE-1"}, cve: "CVE-1", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.finding.Matches(pkg, tt.cve))
		})
	}
}

func packageInfo(name, source string) packages.Info {
	return packages.Info{Package: name, Source: source}
}

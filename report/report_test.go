package report_test

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/vuln-deb-status/report"
	"github.com/aquasecurity/vuln-deb-status/tracker"
	"github.com/aquasecurity/vuln-deb-status/utils"
)

func loadTarget(t *testing.T) report.Target {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", "target.json"))
	require.NoError(t, err)

	var target report.Target
	require.NoError(t, json.Unmarshal(b, &target))
	return target
}

func TestTarget_JSON(t *testing.T) {
	target := loadTarget(t)
	require.Len(t, target.Packages, 2)

	expat := target.Packages[0]
	assert.Equal(t, "libexpat1", expat.Package)
	assert.Equal(t, "expat", expat.Source)
	require.Len(t, expat.Issues, 3)

	issue := expat.Issues[0]
	assert.Equal(t, "CVE-2013-0340", issue.CVE)
	assert.Equal(t, "Open unimportant issues", issue.Tables)
	assert.Equal(t, "vulnerable", issue.StatusMaxVersion)
	require.NotNil(t, issue.Saturation.VUL)
	assert.Equal(t, "yes", issue.Saturation.VUL.StatusVulners)
	require.NotNil(t, issue.Saturation.SCA6)
	assert.Equal(t, "High", issue.Saturation.SCA6.Level)

	assert.Nil(t, expat.Issues[1].Saturation.VUL)

	b, err := json.Marshal(issue)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"soturation":{"VUL":`)
	assert.Contains(t, string(b), `"status_max_version":"vulnerable"`)

	b, err = json.Marshal(expat.Issues[1])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"soturation":{}`)
}

func TestNewIssue(t *testing.T) {
	got := report.NewIssue(tracker.Issue{
		CVE:             "CVE-2022-40674",
		Table:           "Resolved issues",
		MiniDescription: "libexpat before 2.4.9 has a use-after-free",
		Href:            "http://localhost/tracker/CVE-2022-40674",
	}, "2.2.6-2+deb10u4")

	assert.Equal(t, "CVE-2022-40674", got.CVE)
	assert.Equal(t, "Resolved issues", got.Tables)
	assert.Equal(t, "http://localhost/tracker/CVE-2022-40674", got.Href)
	assert.Equal(t, "2.2.6-2+deb10u4", got.CurrentVersion)
	assert.Equal(t, "N/A", got.StatusMaxVersion)

	got.Merge(tracker.AdvisoryRecord{CVE: "CVE-2022-40674", StatusMaxVersion: "fixed"})
	assert.Equal(t, "fixed", got.StatusMaxVersion)
	assert.Equal(t, "Resolved issues", got.Tables)
}

func TestRows(t *testing.T) {
	rows := report.Rows(loadTarget(t))

	// fixed and not found issues are left out
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Len(t, row, len(report.Header()))
	}

	assert.Equal(t, []string{
		"debian", "buster", "bullseye", "",
		"libexpat1", "expat", "amd64", "",
		"CVE-2013-0340", "Open unimportant issues", "",
		"2.2.6-2+deb10u4", "vulnerable",
		"2.2.6-2+deb10u6", "vulnerable",
		"2.2.10-2+deb11u5", "vulnerable",
		"2.5.0-1", "vulnerable", "",
		"yes", "2014-04-14",
		"6.8", "NETWORK",
		"N/A", "N/A", "",
		"no", "",
		"yes", "High", "",
		"XML parsing C library - runtime library", "https://packages.debian.org/buster/amd64/libexpat1",
		"expat 2.1.0 and earlier does not properly handle entities expansion", "https://security-tracker.debian.org/tracker/CVE-2013-0340",
	}, rows[0])

	// missing enrichment renders as "-"
	assert.Equal(t, "CVE-2018-1000654", rows[1][8])
	assert.Equal(t, []string{"-", "-", "-", "-", "-", "-"}, rows[1][20:26])
	assert.Equal(t, "-", rows[1][27])
	assert.Equal(t, []string{"-", "-"}, rows[1][29:31])
}

func TestWriteCSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, report.WriteCSV(fs, "report.csv", loadTarget(t)))

	f, err := fs.Open("report.csv")
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, report.Header(), records[0])
	assert.Len(t, records[0], 36)
	assert.Equal(t, "CVE-2013-0340", records[1][8])
}

func TestWriteCSV_RoundTripThroughFs(t *testing.T) {
	fs := utils.NewFs(afero.NewMemMapFs())
	require.NoError(t, fs.WriteJSON("db/target.json", loadTarget(t)))

	var target report.Target
	require.NoError(t, fs.ReadJSON("db/target.json", &target))
	assert.Equal(t, loadTarget(t), target)
}

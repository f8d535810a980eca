// Package scan collects the vulnerability database of a host: the details
// of every installed package, the issues of its source package and the
// tracker verdict of each issue.
package scan

import (
	"context"
	"log"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-deb-status/config"
	"github.com/aquasecurity/vuln-deb-status/inventory"
	"github.com/aquasecurity/vuln-deb-status/packages"
	"github.com/aquasecurity/vuln-deb-status/report"
	"github.com/aquasecurity/vuln-deb-status/tracker"
	"github.com/aquasecurity/vuln-deb-status/utils"
)

type PackageIndex interface {
	Info(release, arch, pkg string) (packages.Info, error)
}

type Tracker interface {
	Issues(pkg string) ([]tracker.Issue, error)
	CVE(q tracker.Query) (tracker.AdvisoryRecord, error)
}

type Scanner struct {
	index   PackageIndex
	tracker Tracker
	workers int
}

func NewScanner(index PackageIndex, t Tracker, workers int) Scanner {
	if workers < 1 {
		workers = 1
	}
	return Scanner{index: index, tracker: t, workers: workers}
}

// Scan builds the database of target from its installed packages. The
// packages keep the order of pkgs. The first failure in that order is
// returned.
func (s Scanner) Scan(ctx context.Context, target config.Target, pkgs []inventory.Package) (report.Target, error) {
	log.Printf("Collecting %d %s %s packages", len(pkgs), target.Distr, target.Release)

	results := make([]report.Package, len(pkgs))
	errs := make([]error, len(pkgs))

	bar := pb.StartNew(len(pkgs))
	tasks := utils.GenWorkers(s.workers, 0)
	var wg sync.WaitGroup
	for i, pkg := range pkgs {
		i, pkg := i, pkg
		wg.Add(1)
		tasks <- func() {
			defer wg.Done()
			defer bar.Increment()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = s.collect(target, pkg)
		}
	}
	wg.Wait()
	close(tasks)
	bar.Finish()

	for i, err := range errs {
		if err != nil {
			return report.Target{}, xerrors.Errorf("%s: %w", pkgs[i], err)
		}
	}
	return report.Target{
		Distr:      target.Distr,
		Release:    target.Release,
		NewRelease: target.NewRelease,
		Packages:   results,
	}, nil
}

func (s Scanner) collect(target config.Target, pkg inventory.Package) (report.Package, error) {
	info, err := s.index.Info(target.Release, pkg.Arch, pkg.Name)
	if err != nil {
		return report.Package{}, xerrors.Errorf("package info error: %w", err)
	}
	result := report.Package{Info: info, Issues: []report.Issue{}}
	if info.Source == "" || tracker.IsAbsent(info.Source) {
		return result, nil
	}

	issues, err := s.tracker.Issues(info.Source)
	if err != nil {
		return report.Package{}, xerrors.Errorf("tracker issues error: %w", err)
	}
	for _, i := range issues {
		issue := report.NewIssue(i, pkg.Version)
		rec, err := s.tracker.CVE(tracker.Query{
			CVE:              i.CVE,
			SourcePackage:    info.Source,
			Release:          target.Release,
			NewRelease:       target.NewRelease,
			InstalledVersion: pkg.Version,
		})
		if err != nil {
			return report.Package{}, xerrors.Errorf("tracker CVE error: %w", err)
		}
		issue.Merge(rec)
		result.Issues = append(result.Issues, issue)
	}
	return result, nil
}

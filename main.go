package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-deb-status/config"
	"github.com/aquasecurity/vuln-deb-status/inventory"
	"github.com/aquasecurity/vuln-deb-status/packages"
	"github.com/aquasecurity/vuln-deb-status/report"
	"github.com/aquasecurity/vuln-deb-status/sca"
	"github.com/aquasecurity/vuln-deb-status/scan"
	"github.com/aquasecurity/vuln-deb-status/tracker"
	"github.com/aquasecurity/vuln-deb-status/utils"
	"github.com/aquasecurity/vuln-deb-status/vulners"
)

var (
	target     = flag.String("target", "", "run target (scan, vulners, sca, report)")
	configPath = flag.String("config", config.Path(), "config file")
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	flag.Parse()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return xerrors.Errorf("config error: %w", err)
	}
	fs := utils.NewFs(afero.NewOsFs())

	switch *target {
	case "scan":
		pkgs, err := installedPackages(ctx, cfg)
		if err != nil {
			return xerrors.Errorf("inventory error: %w", err)
		}
		s := scan.NewScanner(
			packages.NewClient(packages.WithRetry(cfg.Retry)),
			tracker.NewClient(tracker.WithRetry(cfg.Retry)),
			cfg.Workers,
		)
		db, err := s.Scan(ctx, cfg.Target, pkgs)
		if err != nil {
			return xerrors.Errorf("error in scan: %w", err)
		}
		log.Printf("Saving the database to %s", cfg.Output.DB)
		if err = fs.WriteJSON(cfg.Output.DB, db); err != nil {
			return xerrors.Errorf("unable to save the database: %w", err)
		}
	case "vulners":
		var db report.Target
		if err := fs.ReadJSON(cfg.Vulners.Input, &db); err != nil {
			return xerrors.Errorf("unable to read the database: %w", err)
		}
		c := vulners.NewClient(vulners.WithAPIKey(cfg.Vulners.APIKey), vulners.WithRetry(cfg.Retry))
		c.Saturate(&db)
		if err := fs.WriteJSON(cfg.Vulners.Output, db); err != nil {
			return xerrors.Errorf("unable to save the database: %w", err)
		}
	case "sca":
		var db report.Target
		if err := fs.ReadJSON(cfg.SCA6.Input, &db); err != nil {
			return xerrors.Errorf("unable to read the database: %w", err)
		}
		f, err := os.Open(cfg.SCA6.Report)
		if err != nil {
			return xerrors.Errorf("unable to open the SCA6 report: %w", err)
		}
		defer f.Close()
		findings, err := sca.Parse(f, cfg.SCA6.Full)
		if err != nil {
			return xerrors.Errorf("error in SCA6 report: %w", err)
		}
		sca.Saturate(&db, findings)
		if err = fs.WriteJSON(cfg.SCA6.Output, db); err != nil {
			return xerrors.Errorf("unable to save the database: %w", err)
		}
	case "report":
		var db report.Target
		if err := fs.ReadJSON(cfg.Output.DB, &db); err != nil {
			return xerrors.Errorf("unable to read the database: %w", err)
		}
		log.Printf("Saving the CSV report to %s", cfg.Output.CSV)
		if err := report.WriteCSV(fs.AppFs, cfg.Output.CSV, db); err != nil {
			return xerrors.Errorf("error in CSV report: %w", err)
		}
	default:
		return xerrors.New("unknown target")
	}

	return nil
}

func installedPackages(ctx context.Context, cfg config.Config) ([]inventory.Package, error) {
	switch cfg.InputType {
	case config.InputFile:
		return inventory.FromFile(ctx, cfg.Input.File)
	case config.InputExec:
		return inventory.List(ctx, inventory.ExecRunner{}, cfg.Target.Distr)
	default:
		return inventory.List(ctx, inventory.NewSSHRunner(cfg.Input.SSH), cfg.Target.Distr)
	}
}

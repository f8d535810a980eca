// Package inventory lists the packages installed on a Debian host.
package inventory

import (
	"bufio"
	"context"
	"log"
	"os"
	"strings"

	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-deb-status/utils"
)

const (
	Debian       = "debian"
	DebianKernel = "debian-kernel"
)

var commands = map[string]string{
	Debian: `dpkg-query -W -f='${Status} ${Package} ${Version} ${Architecture}\n' | ` +
		`awk '($1 == "install") && ($2 == "ok") {print $4" "$5" "$6}'`,
	DebianKernel: `
k_info=$(uname -r)
k_name=$(echo linux-headers-${k_info})
k_arch=$(echo ${k_info} | sed -r 's/^[0-9.]*-[0-9.]*-//')
k_version=$(echo ${k_info} | sed -r 's/-'${k_arch}'$//')
echo ${k_name} ${k_version} ${k_arch}
`,
}

// Package is one installed binary package.
type Package struct {
	Name    string
	Version string
	Arch    string
}

func (p Package) String() string {
	return p.Name + " " + p.Version + " " + p.Arch
}

// Runner executes a shell command on the inspected host.
type Runner interface {
	Run(ctx context.Context, cmd string) (string, error)
}

// Command returns the shell command listing the packages of distr, or ""
// when distr is not supported.
func Command(distr string) string {
	return commands[distr]
}

// List returns the running kernel headers followed by every installed
// package of distr.
func List(ctx context.Context, r Runner, distr string) ([]Package, error) {
	var pkgs []Package
	for _, d := range []string{distr + "-kernel", distr} {
		cmd := Command(d)
		if cmd == "" {
			return nil, xerrors.Errorf("unsupported distribution: %s", d)
		}
		log.Printf("Listing %s packages", d)
		out, err := r.Run(ctx, cmd)
		if err != nil {
			return nil, xerrors.Errorf("failed to list %s packages: %w", d, err)
		}
		pkgs = append(pkgs, Parse(out)...)
	}
	return pkgs, nil
}

// Parse reads "name version arch" lines. Other lines are skipped.
func Parse(out string) []Package {
	var pkgs []Package
	s := bufio.NewScanner(strings.NewReader(out))
	for s.Scan() {
		line := utils.TrimSpaceNewline(s.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, " ")
		if len(fields) != 3 {
			log.Printf("malformed package line: %s", line)
			continue
		}
		pkgs = append(pkgs, Package{Name: fields[0], Version: fields[1], Arch: fields[2]})
	}
	return pkgs
}

// FromFile reads a package list previously saved from the host. src is
// anything go-getter accepts, e.g. a local path or an http URL.
func FromFile(ctx context.Context, src string) ([]Package, error) {
	f, err := utils.DownloadToTempFile(ctx, src)
	if err != nil {
		return nil, xerrors.Errorf("unable to get the package list: %w", err)
	}
	defer os.Remove(f)

	b, err := os.ReadFile(f)
	if err != nil {
		return nil, xerrors.Errorf("unable to read the package list: %w", err)
	}
	return Parse(string(b)), nil
}

// ExecRunner runs commands on the local host.
type ExecRunner struct{}

func (ExecRunner) Run(_ context.Context, cmd string) (string, error) {
	return utils.Exec("sh", []string{"-c", cmd})
}

// Package packages reads package details from packages.debian.org.
package packages

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-deb-status/tracker"
	"github.com/aquasecurity/vuln-deb-status/utils"
)

const (
	packagesURL = "https://packages.debian.org"
	retry       = 5
)

// Info describes a binary package and the source package it is built from.
type Info struct {
	Package         string `json:"package"`
	Source          string `json:"package_source"`
	Arch            string `json:"package_arch"`
	Description     string `json:"package_description"`
	FullDescription string `json:"package_fdescription"`
	Href            string `json:"package_href"`
}

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
		baseURL: packagesURL,
		retry:   retry,
	}
	for _, opt := range opts {
		opt(o)
	}
	return Client{options: o}
}

// Info fetches the page of a binary package. A package unknown to the index
// has an empty Source and "N/A" descriptions.
func (c Client) Info(release, arch, pkg string) (Info, error) {
	u := fmt.Sprintf("%s/%s/%s/%s", strings.TrimSuffix(c.baseURL, "/"), release, arch, pkg)
	b, err := utils.FetchURL(u, "", c.retry)
	if err != nil {
		var se *utils.StatusError
		if !xerrors.As(err, &se) {
			return Info{}, xerrors.Errorf("unable to fetch package %s: %w", pkg, err)
		}
		log.Printf("Debian packages: %s", se)
		return Info{
			Package:         pkg,
			Arch:            arch,
			Description:     tracker.Unset.String(),
			FullDescription: tracker.Unset.String(),
			Href:            u,
		}, nil
	}

	info, err := ParseInfo(bytes.NewReader(b))
	if err != nil {
		return Info{}, xerrors.Errorf("package %s: %w", pkg, err)
	}
	info.Package = pkg
	info.Arch = arch
	info.Href = u
	return info, nil
}

// ParseInfo reads the source package and descriptions of a package page.
func ParseInfo(r io.Reader) (Info, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Info{}, xerrors.Errorf("unable to parse the package page: %w", err)
	}
	return Info{
		Source:          text(doc.Find("div#psource > a"), false),
		Description:     text(doc.Find("div#pdesc > h2"), true),
		FullDescription: text(doc.Find("div#pdesc > p"), true),
	}, nil
}

func text(sel *goquery.Selection, normalize bool) string {
	t := strings.TrimSpace(sel.First().Text())
	if t == "" {
		return tracker.NoMatch.String()
	}
	if normalize {
		return tracker.NormalizeText(t)
	}
	return t
}

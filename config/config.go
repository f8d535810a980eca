// Package config loads the settings of a vuln-deb-status run.
package config

import (
	"os"

	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"github.com/aquasecurity/vuln-deb-status/inventory"
	"github.com/aquasecurity/vuln-deb-status/utils"
)

const (
	InputSSH  = "ssh"
	InputExec = "exec"
	InputFile = "file"

	defaultPath    = "config.yaml"
	defaultWorkers = 4
	defaultRetry   = 5
)

var (
	ErrNotFound = xerrors.New("config file not found")

	inputTypes = []string{InputSSH, InputExec, InputFile}
)

type Config struct {
	Target    Target  `yaml:"target"`
	InputType string  `yaml:"input_type"`
	Input     Input   `yaml:"input"`
	Output    Output  `yaml:"output"`
	Vulners   Vulners `yaml:"vulners"`
	SCA6      SCA6    `yaml:"sca6"`
	Workers   int     `yaml:"workers"`
	Retry     int     `yaml:"retry"`
}

// Target names the inspected host's distribution and releases.
type Target struct {
	Distr      string `yaml:"distr"`
	Release    string `yaml:"release"`
	NewRelease string `yaml:"new_release"`
}

type Input struct {
	SSH  inventory.SSHConfig `yaml:"ssh"`
	File string              `yaml:"file"`
}

type Output struct {
	DB  string `yaml:"db"`
	CSV string `yaml:"csv"`
}

type Vulners struct {
	APIKey string `yaml:"api_key"`
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// SCA6 locates an SCA6 HTML report. Full selects the detailed layout.
type SCA6 struct {
	Report string `yaml:"report"`
	Full   bool   `yaml:"full"`
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// Path returns the config file to load when none is given on the command line.
func Path() string {
	return utils.LookupEnv("VULN_DEB_STATUS_CONFIG", defaultPath)
}

// Load reads the YAML file at path, fills the defaults and validates the result.
func Load(path string) (Config, error) {
	ok, err := utils.Exists(path)
	if err != nil {
		return Config{}, xerrors.Errorf("unable to stat %s: %w", path, err)
	} else if !ok {
		return Config{}, xerrors.Errorf("%s: %w", path, ErrNotFound)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, xerrors.Errorf("unable to read %s: %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	c := Config{Workers: defaultWorkers, Retry: defaultRetry}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, xerrors.Errorf("unable to decode the config: %w", err)
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) setDefaults() {
	if c.Target.Distr == "" {
		c.Target.Distr = inventory.Debian
	}
	if c.InputType == "" {
		c.InputType = InputSSH
	}
	if c.Output.DB == "" {
		c.Output.DB = "db.json"
	}
	if c.Output.CSV == "" {
		c.Output.CSV = "report.csv"
	}
	if c.Vulners.Input == "" {
		c.Vulners.Input = c.Output.DB
	}
	if c.Vulners.Output == "" {
		c.Vulners.Output = c.Vulners.Input
	}
	if c.SCA6.Input == "" {
		c.SCA6.Input = c.Output.DB
	}
	if c.SCA6.Output == "" {
		c.SCA6.Output = c.SCA6.Input
	}
	c.Vulners.APIKey = utils.LookupEnv("VULNERS_API_KEY", c.Vulners.APIKey)
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.Retry < 0 {
		c.Retry = 0
	}
}

func (c Config) Validate() error {
	if c.Target.Release == "" {
		return xerrors.New("target.release is required")
	}
	if inventory.Command(c.Target.Distr) == "" {
		return xerrors.Errorf("unsupported distribution: %s", c.Target.Distr)
	}
	if !slices.Contains(inputTypes, c.InputType) {
		return xerrors.Errorf("unknown input_type %q, expected one of %v", c.InputType, inputTypes)
	}
	switch c.InputType {
	case InputSSH:
		if c.Input.SSH.Host == "" {
			return xerrors.New("input.ssh.host is required for the ssh input")
		}
	case InputFile:
		if c.Input.File == "" {
			return xerrors.New("input.file is required for the file input")
		}
	}
	return nil
}

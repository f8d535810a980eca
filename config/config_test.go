package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vuln-deb-status/config"
	"github.com/aquasecurity/vuln-deb-status/inventory"
)

func TestLoad(t *testing.T) {
	t.Setenv("VULNERS_API_KEY", "")

	tests := []struct {
		name string
		path string
		want config.Config
	}{
		{
			name: "full",
			path: "testdata/config.yaml",
			want: config.Config{
				Target:    config.Target{Distr: "debian", Release: "buster", NewRelease: "bullseye"},
				InputType: config.InputSSH,
				Input: config.Input{
					SSH: inventory.SSHConfig{
						Host:     "192.0.2.10",
						Port:     2222,
						Username: "audit",
						KeyFile:  "/home/audit/.ssh/id_ed25519",
						Timeout:  10 * time.Second,
					},
				},
				Output:  config.Output{DB: "out/buster.json", CSV: "out/buster.csv"},
				Vulners: config.Vulners{APIKey: "", Input: "out/buster.json", Output: "out/buster.json"},
				SCA6: config.SCA6{
					Report: "sca6/report.html",
					Full:   true,
					Input:  "out/buster.json",
					Output: "out/buster.json",
				},
				Workers: 8,
				Retry:   2,
			},
		},
		{
			name: "defaults",
			path: "testdata/minimal.yaml",
			want: config.Config{
				Target:    config.Target{Distr: "debian", Release: "bookworm"},
				InputType: config.InputFile,
				Input:     config.Input{File: "testdata/packages.txt"},
				Output:    config.Output{DB: "db.json", CSV: "report.csv"},
				Vulners:   config.Vulners{Input: "db.json", Output: "db.json"},
				SCA6:      config.SCA6{Input: "db.json", Output: "db.json"},
				Workers:   4,
				Retry:     5,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := config.Load(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_APIKeyFromEnv(t *testing.T) {
	t.Setenv("VULNERS_API_KEY", "from-env")

	got, err := config.Load("testdata/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got.Vulners.APIKey)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := config.Load("testdata/missing.yaml")
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, config.ErrNotFound))
}

func TestPath(t *testing.T) {
	t.Setenv("VULN_DEB_STATUS_CONFIG", "/etc/vuln-deb-status.yaml")
	assert.Equal(t, "/etc/vuln-deb-status.yaml", config.Path())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "missing release",
			input:   "input_type: exec",
			wantErr: "target.release is required",
		},
		{
			name:    "unknown distribution",
			input:   "target: {distr: ubuntu, release: jammy}\ninput_type: exec",
			wantErr: "unsupported distribution: ubuntu",
		},
		{
			name:    "unknown input type",
			input:   "target: {release: buster}\ninput_type: telnet",
			wantErr: `unknown input_type "telnet"`,
		},
		{
			name:    "ssh without host",
			input:   "target: {release: buster}",
			wantErr: "input.ssh.host is required",
		},
		{
			name:    "file without path",
			input:   "target: {release: buster}\ninput_type: file",
			wantErr: "input.file is required",
		},
		{
			name:    "broken yaml",
			input:   "target: [",
			wantErr: "unable to decode the config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

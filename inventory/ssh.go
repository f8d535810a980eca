package inventory

import (
	"bytes"
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/xerrors"
)

const defaultSSHPort = 22

type SSHConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	KeyFile    string        `yaml:"key_file"`
	KnownHosts string        `yaml:"known_hosts"`
	Timeout    time.Duration `yaml:"timeout"`
}

// SSHRunner runs commands on a remote host, one session per command.
type SSHRunner struct {
	config SSHConfig
	dial   func(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)
}

func NewSSHRunner(config SSHConfig) SSHRunner {
	return SSHRunner{config: config, dial: ssh.Dial}
}

func (r SSHRunner) clientConfig() (*ssh.ClientConfig, error) {
	var auths []ssh.AuthMethod
	if r.config.KeyFile != "" {
		key, err := os.ReadFile(r.config.KeyFile)
		if err != nil {
			return nil, xerrors.Errorf("unable to read the private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, xerrors.Errorf("unable to parse the private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}
	if r.config.Password != "" {
		auths = append(auths, ssh.Password(r.config.Password))
	}
	if len(auths) == 0 {
		return nil, xerrors.New("no SSH authentication method configured")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if r.config.KnownHosts != "" {
		cb, err := knownhosts.New(r.config.KnownHosts)
		if err != nil {
			return nil, xerrors.Errorf("unable to load known hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            r.config.Username,
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
		Timeout:         r.config.Timeout,
	}, nil
}

func (r SSHRunner) addr() string {
	port := r.config.Port
	if port == 0 {
		port = defaultSSHPort
	}
	return net.JoinHostPort(r.config.Host, strconv.Itoa(port))
}

func (r SSHRunner) Run(ctx context.Context, cmd string) (string, error) {
	cfg, err := r.clientConfig()
	if err != nil {
		return "", xerrors.Errorf("ssh config error: %w", err)
	}

	client, err := r.dial("tcp", r.addr(), cfg)
	if err != nil {
		return "", xerrors.Errorf("failed to connect via ssh: %w", err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", xerrors.Errorf("failed to open an ssh session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		return "", xerrors.Errorf("ssh command canceled: %w", ctx.Err())
	case err = <-done:
	}
	if err != nil {
		return "", xerrors.Errorf("failed to execute ssh command: %s: %w", stderr.String(), err)
	}
	return stdout.String(), nil
}

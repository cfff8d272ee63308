// Package fetch retrieves black box dumps from remote bench hosts over SSH.
// Lab setups usually park the bridge on a small gateway box next to the
// hardware; rctl pulls crash dumps off it for local analysis.
package fetch

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/danmuck/reactorctl/internal/blackbox"
)

// Fetcher reads remote files over SSH with public key auth.
type Fetcher struct {
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	Passphrase                  []byte
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
}

// FetchDump reads a remote dump file and decodes it.
func (f Fetcher) FetchDump(remotePath string) (blackbox.Dump, error) {
	data, err := f.Fetch(remotePath)
	if err != nil {
		return blackbox.Dump{}, err
	}
	return blackbox.Decode(data)
}

// Fetch reads a remote file and returns its contents.
func (f Fetcher) Fetch(remotePath string) ([]byte, error) {
	client, err := f.dial()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if err := session.Run("cat " + shellEscape(remotePath)); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("fetch %s: %s: %w", remotePath, msg, err)
		}
		return nil, fmt.Errorf("fetch %s: %w", remotePath, err)
	}
	return stdout.Bytes(), nil
}

func shellEscape(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

func (f Fetcher) dial() (*ssh.Client, error) {
	address, err := f.address()
	if err != nil {
		return nil, err
	}

	config, err := f.clientConfig()
	if err != nil {
		return nil, err
	}

	if f.Timeout <= 0 {
		return ssh.Dial("tcp", address, config)
	}

	conn, err := net.DialTimeout("tcp", address, f.Timeout)
	if err != nil {
		return nil, err
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return ssh.NewClient(clientConn, chans, reqs), nil
}

func (f Fetcher) address() (string, error) {
	host := strings.TrimSpace(f.Host)
	if host == "" {
		return "", fmt.Errorf("ssh host is required")
	}

	if f.Port != "" {
		return net.JoinHostPort(host, f.Port), nil
	}

	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}

	return net.JoinHostPort(host, "22"), nil
}

func (f Fetcher) clientConfig() (*ssh.ClientConfig, error) {
	if f.User == "" {
		return nil, fmt.Errorf("ssh user is required")
	}

	signer, err := f.signer()
	if err != nil {
		return nil, err
	}

	var hostKeyCallback ssh.HostKeyCallback
	if f.InsecureSkipHostKeyChecking {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		callback, err := f.knownHostsCallback()
		if err != nil {
			return nil, err
		}
		hostKeyCallback = callback
	}

	return &ssh.ClientConfig{
		User:            f.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         f.Timeout,
	}, nil
}

func (f Fetcher) signer() (ssh.Signer, error) {
	if f.KeyPath == "" {
		return nil, fmt.Errorf("ssh key path is required")
	}

	privateKey, err := os.ReadFile(f.KeyPath)
	if err != nil {
		return nil, err
	}

	if len(f.Passphrase) > 0 {
		return ssh.ParsePrivateKeyWithPassphrase(privateKey, f.Passphrase)
	}

	return ssh.ParsePrivateKey(privateKey)
}

func (f Fetcher) knownHostsCallback() (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(f.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("known hosts path not set and home dir unavailable")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	return knownhosts.New(path)
}

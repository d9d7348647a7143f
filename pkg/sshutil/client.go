// Package sshutil opens SSH and SFTP connections to remote stages. Host
// settings are resolved from an OpenSSH client config file, authentication
// goes through the SSH agent and identity files, and unknown host keys are
// handled by a pluggable policy.
package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
}

// Options tweak how the connection is opened, on top of what the OpenSSH
// config file resolves. Zero values fall back to config-file or built-in
// defaults.
type Options struct {
	// ConfigFile is the OpenSSH client config file to resolve the host
	// against. Defaults to ~/.ssh/config.
	ConfigFile string

	// User, Port and IdentityFile override whatever the config file says.
	User         string
	Port         int
	IdentityFile string

	// Timeout bounds both the TCP dial and the SSH handshake.
	Timeout time.Duration

	// HostKeyPolicy decides what to do when the server key is not in
	// known_hosts. Defaults to InteractiveConfirmPolicy.
	HostKeyPolicy HostKeyPolicy
}

// Dial establishes an SSH connection to the specified host. The host can be
// an ssh_config alias, a plain hostname, or user@hostname.
func Dial(host string, opts Options) (*Client, error) {
	settings := resolveSettings(host, opts)

	config, err := buildClientConfig(settings, opts)
	if err != nil {
		var kerr *errors.Error
		if stderrors.As(err, &kerr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	address := settings.address()
	conn, err := net.DialTimeout("tcp", address, config.Timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrTransport,
				hostKeyErr.Error(),
				hostKeyErr.Suggestion())
		}

		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err, settings.encryptedKeys))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// settings holds resolved SSH connection parameters.
type settings struct {
	hostname      string
	port          string
	user          string
	identityFiles []string
	encryptedKeys []string // Keys that exist but are encrypted
}

func (s *settings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSettings parses the host string and resolves settings from the
// OpenSSH config file, then applies the explicit overrides from opts.
func resolveSettings(host string, opts Options) *settings {
	s := &settings{
		port: "22",
		user: currentUser(),
	}

	// user@host takes precedence over everything else
	if atIdx := strings.Index(host, "@"); atIdx != -1 {
		s.user = host[:atIdx]
		host = host[atIdx+1:]
	}
	s.hostname = host

	configPath := ExpandPath(opts.ConfigFile)
	if configPath == "" {
		configPath = filepath.Join(homeDir(), ".ssh", "config")
	}

	if content, err := os.ReadFile(configPath); err == nil {
		if cfg, err := ssh_config.Decode(bytes.NewReader(content)); err == nil {
			if hostname, _ := cfg.Get(host, "HostName"); hostname != "" {
				s.hostname = hostname
			}
			if port, _ := cfg.Get(host, "Port"); port != "" {
				s.port = port
			}
			if user, _ := cfg.Get(host, "User"); user != "" {
				s.user = user
			}
			if identities, _ := cfg.GetAll(host, "IdentityFile"); len(identities) > 0 {
				for _, identity := range identities {
					s.identityFiles = append(s.identityFiles, ExpandPath(identity))
				}
			}
		}
	}

	if opts.User != "" {
		s.user = opts.User
	}
	if opts.Port != 0 {
		s.port = strconv.Itoa(opts.Port)
	}
	if opts.IdentityFile != "" {
		s.identityFiles = append([]string{ExpandPath(opts.IdentityFile)}, s.identityFiles...)
	}

	return s
}

// buildClientConfig creates an SSH client config with authentication methods.
// It also populates settings.encryptedKeys with keys that exist but require
// a passphrase.
func buildClientConfig(s *settings, opts Options) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	tryKeyFile := func(keyPath string) {
		keyAuth, err := keyFileAuth(keyPath)
		if err != nil {
			var encErr *EncryptedKeyError
			if stderrors.As(err, &encErr) {
				s.encryptedKeys = append(s.encryptedKeys, keyPath)
			}
			// Other errors (file not found, etc.) are silently ignored
			return
		}
		authMethods = append(authMethods, keyAuth)
	}

	// Try the SSH agent first (most common and convenient)
	if agentAuth := sshAgentAuth(); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}

	tried := make(map[string]bool)
	for _, keyPath := range s.identityFiles {
		if keyPath == "" || tried[keyPath] {
			continue
		}
		tried[keyPath] = true
		tryKeyFile(keyPath)
	}

	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(homeDir(), ".ssh", name)
		if tried[keyPath] {
			continue
		}
		tried[keyPath] = true
		tryKeyFile(keyPath)
	}

	if len(authMethods) == 0 {
		msg := "No SSH auth methods available"
		suggestion := "Check your keys are loaded: ssh-add -l"

		if len(s.encryptedKeys) > 0 {
			msg = fmt.Sprintf("Found SSH key(s) but they're encrypted: %s", strings.Join(s.encryptedKeys, ", "))
			suggestion = "Add your key(s) to the agent with ssh-add"
		}

		return nil, errors.New(errors.ErrTransport, msg, suggestion)
	}

	policy := opts.HostKeyPolicy
	if policy == nil {
		policy = NewInteractiveConfirmPolicy()
	}

	hostKeyCallback, err := hostKeyCallbackWithPolicy(knownHostsPath(), policy)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to load known_hosts",
			"Check ~/.ssh/known_hosts is readable")
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// agentConn holds the reusable SSH agent connection.
var (
	agentConn     net.Conn
	agentClient   agent.ExtendedAgent
	agentConnOnce sync.Once
)

// sshAgentAuth returns an auth method using the SSH agent if available.
// The agent connection is reused across connections. Returns nil if the
// agent has no keys loaded.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentConnOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	})

	if agentClient == nil {
		return nil
	}

	// An empty agent causes auth failures when placed before other methods.
	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}

	return ssh.PublicKeysCallback(agentClient.Signers)
}

// CloseAgent closes the SSH agent connection if one is open.
func CloseAgent() {
	if agentConn != nil {
		agentConn.Close()
	}
}

// keyFileAuth returns an auth method using a private key file.
// Returns EncryptedKeyError if the key requires a passphrase.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		if strings.Contains(err.Error(), "encrypted") ||
			strings.Contains(err.Error(), "passphrase") ||
			isEncryptedPEM(key) {
			return nil, &EncryptedKeyError{Path: keyPath}
		}
		return nil, err
	}

	return ssh.PublicKeys(signer), nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func knownHostsPath() string {
	return filepath.Join(homeDir(), ".ssh", "known_hosts")
}

// ExpandPath resolves a leading ~/ against the user home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Try: ssh <host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error, encryptedKeys []string) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		if len(encryptedKeys) > 0 {
			return fmt.Sprintf("Your key(s) are encrypted (%s). Add them to the agent with ssh-add.",
				strings.Join(encryptedKeys, ", "))
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}

// EncryptedKeyError is returned when an SSH key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// isEncryptedPEM checks if PEM data contains encryption markers.
func isEncryptedPEM(data []byte) bool {
	return bytes.Contains(data, []byte("ENCRYPTED")) ||
		bytes.Contains(data, []byte("Proc-Type: 4,ENCRYPTED"))
}

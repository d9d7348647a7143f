package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyPolicy decides what happens when a server presents a key that isn't
// in known_hosts yet. Returning nil accepts the key for this connection;
// policies may also persist it.
type HostKeyPolicy interface {
	MissingHostKey(hostname string, remote net.Addr, key ssh.PublicKey) error
}

// InteractiveConfirmPolicy asks the operator whether the new host key should
// be trusted and, on confirmation, appends it to known_hosts. This is the
// default policy.
type InteractiveConfirmPolicy struct {
	// KnownHostsFile is where confirmed keys are persisted. Defaults to
	// ~/.ssh/known_hosts.
	KnownHostsFile string

	// confirm is swappable for tests; defaults to a huh confirmation prompt.
	confirm func(message string) (bool, error)
}

// NewInteractiveConfirmPolicy returns the default interactive policy.
func NewInteractiveConfirmPolicy() *InteractiveConfirmPolicy {
	return &InteractiveConfirmPolicy{
		KnownHostsFile: knownHostsPath(),
		confirm:        promptConfirm,
	}
}

func (p *InteractiveConfirmPolicy) MissingHostKey(hostname string, remote net.Addr, key ssh.PublicKey) error {
	msg := fmt.Sprintf("Host key for %s not found (%s %s). Add it to your known_hosts?",
		hostname, key.Type(), ssh.FingerprintSHA256(key))

	confirm := p.confirm
	if confirm == nil {
		confirm = promptConfirm
	}

	ok, err := confirm(msg)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unknown host key for %s declined", hostname)
	}

	file := p.KnownHostsFile
	if file == "" {
		file = knownHostsPath()
	}
	return appendKnownHost(file, hostname, key)
}

func promptConfirm(message string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(message).
		Affirmative("Trust it").
		Negative("Abort").
		Value(&ok).
		Run()
	return ok, err
}

// StrictPolicy rejects any host key that isn't already in known_hosts.
type StrictPolicy struct{}

func (StrictPolicy) MissingHostKey(hostname string, remote net.Addr, key ssh.PublicKey) error {
	return fmt.Errorf("unknown host key for %s (strict checking enabled)", hostname)
}

// AcceptNewPolicy silently trusts and persists any new host key. Meant for
// CI and automation, not interactive use.
type AcceptNewPolicy struct {
	KnownHostsFile string
}

func (p AcceptNewPolicy) MissingHostKey(hostname string, remote net.Addr, key ssh.PublicKey) error {
	file := p.KnownHostsFile
	if file == "" {
		file = knownHostsPath()
	}
	return appendKnownHost(file, hostname, key)
}

// appendKnownHost persists a host key in known_hosts format, creating the
// file (and .ssh directory) when needed.
func appendKnownHost(path, hostname string, key ssh.PublicKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open known_hosts: %w", err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{hostname}, key)
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write known_hosts entry: %w", err)
	}
	return nil
}

// hostKeyCallbackWithPolicy verifies keys against known_hosts and defers to
// the given policy for hosts that aren't known yet. Key mismatches are never
// delegated to the policy: they always fail with HostKeyMismatchError.
func hostKeyCallbackWithPolicy(knownHostsFile string, policy HostKeyPolicy) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsFile); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsFile), 0o700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(knownHostsFile, []byte{}, 0o600); err != nil {
			return nil, err
		}
	}

	callback, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) {
			if len(keyErr.Want) > 0 {
				return &HostKeyMismatchError{
					Hostname:     hostname,
					ReceivedType: key.Type(),
					KnownHosts:   knownHostsFile,
					Want:         keyErr.Want,
				}
			}
			// Host not known at all: up to the policy.
			return policy.MissingHostKey(hostname, remote, key)
		}

		return err
	}, nil
}

// HostKeyMismatchError provides helpful context when known_hosts verification
// fails because the server key changed.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  To update known_hosts:\n"+
			"    ssh-keyscan -t rsa,ecdsa,ed25519 %s >> %s\n\n"+
			"  Or remove the old entry:\n"+
			"    ssh-keygen -R %s",
		wantStr, e.ReceivedType, host, e.KnownHosts, host)
}

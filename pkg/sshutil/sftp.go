package sshutil

import (
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/pkg/sftp"
)

// NewSFTP opens an SFTP session on top of an established SSH connection.
// The returned client must be closed independently of the SSH connection.
func (c *Client) NewSFTP() (*sftp.Client, error) {
	client, err := sftp.NewClient(c.Client)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to open SFTP session on '"+c.Host+"'",
			"Check the remote sshd has the sftp subsystem enabled")
	}
	return client, nil
}

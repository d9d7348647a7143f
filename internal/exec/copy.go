package exec

import (
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/KnpLabs/kitipy-continued/internal/dispatch"
	"github.com/KnpLabs/kitipy-continued/internal/errors"
	"github.com/pkg/sftp"
)

const copyChunkSize = 256 * 1024

// Copy transfers a local file to the target. Against a remote executor the
// file goes through SFTP; against a local one it's a plain filesystem copy.
// Relative destinations resolve against the executor basedir. Progress is
// reported through file_transfer.start/update/end events on the dispatcher;
// the end event fires even when the transfer fails mid-flight.
func (e *Executor) Copy(localPath, destPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Failed to open the source file '"+localPath+"'",
			"Check the path and permissions")
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Failed to stat the source file '"+localPath+"'", "")
	}

	if e.IsRemote() {
		dest := destPath
		if !path.IsAbs(dest) && e.basedir != "" {
			dest = path.Join(e.basedir, dest)
		}
		return e.sftpCopy(src, info.Size(), localPath, dest)
	}

	dest := destPath
	if !filepath.IsAbs(dest) && e.basedir != "" {
		dest = filepath.Join(e.basedir, dest)
	}
	return e.localCopy(src, info.Size(), localPath, dest)
}

func (e *Executor) localCopy(src io.Reader, size int64, label, dest string) error {
	dst, err := os.Create(dest)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Failed to create the destination file '"+dest+"'",
			"Check the destination directory exists and is writable")
	}
	defer dst.Close()

	if err := e.transfer(dst, src, size, label); err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Failed to copy '"+label+"' to '"+dest+"'", "")
	}
	return dst.Close()
}

func (e *Executor) sftpCopy(src io.Reader, size int64, label, dest string) error {
	client, err := e.sftp()
	if err != nil {
		return err
	}

	dst, err := client.Create(dest)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to create the remote file '"+dest+"'",
			"Check the remote directory exists and is writable")
	}
	defer dst.Close()

	if err := e.transfer(dst, src, size, label); err != nil {
		return errors.WrapWithCode(err, errors.ErrTransport,
			"Failed to upload '"+label+"' to '"+e.hostname+":"+dest+"'",
			"The connection may have dropped mid-transfer")
	}
	return dst.Close()
}

// sftp opens the SFTP subsystem on first use, reusing the SSH connection.
func (e *Executor) sftp() (*sftp.Client, error) {
	if e.sftpc != nil {
		return e.sftpc, nil
	}

	client, err := e.connect()
	if err != nil {
		return nil, err
	}

	sc, err := client.NewSFTP()
	if err != nil {
		return nil, err
	}
	e.sftpc = sc
	return e.sftpc, nil
}

// transfer moves bytes in fixed-size chunks, emitting a progress event per
// chunk. The end event is deferred so listeners can tear down their display
// even on a failed transfer.
func (e *Executor) transfer(dst io.Writer, src io.Reader, size int64, label string) error {
	e.dispatcher.Emit("file_transfer.start", dispatch.Event{
		"size":  int(size),
		"label": label,
	})
	defer e.dispatcher.Emit("file_transfer.end", dispatch.Event{
		"label": label,
	})

	buf := make([]byte, copyChunkSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			written += int64(n)
			e.dispatcher.Emit("file_transfer.update", dispatch.Event{
				"current": int(written),
				"total":   int(size),
				"label":   label,
			})
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

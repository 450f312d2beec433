// Package ftps lists and downloads files over FTP with explicit TLS.
package ftps

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/tallybooks/docfeed-core/internal/core/domain"
	"github.com/tallybooks/docfeed-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Connector = (*Connector)(nil)

const (
	defaultPort = 21
	dialTimeout = 15 * time.Second
)

// Connector implements driven.Connector for FTPS servers. Plain FTP is
// not supported; the control connection is always upgraded with
// explicit TLS before credentials are sent.
type Connector struct {
	password []byte
}

// New creates an FTPS connector with the source's vault credential.
func New(password []byte) *Connector {
	return &Connector{password: password}
}

func (c *Connector) Type() domain.ProviderType {
	return domain.ProviderTypeFTPS
}

// List returns the regular files in the configured directory.
func (c *Connector) List(ctx context.Context, cfg domain.SourceConfig) ([]domain.RemoteFile, error) {
	conn, err := c.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	dir := cfg.Path
	if dir == "" {
		dir = "."
	}
	entries, err := conn.List(dir)
	if err != nil {
		return nil, domain.NewProviderError("list", "check that the remote path exists and is readable", err)
	}

	var files []domain.RemoteFile
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFile {
			continue
		}
		files = append(files, domain.RemoteFile{
			// Like SFTP, the directory-unique name serves as the remote id.
			ID:         entry.Name,
			Name:       entry.Name,
			ModifiedAt: entry.Time,
			SizeBytes:  int64(entry.Size),
		})
	}
	return files, nil
}

// Download fetches one file's bytes.
func (c *Connector) Download(ctx context.Context, cfg domain.SourceConfig, remoteID string) ([]byte, error) {
	conn, err := c.connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	resp, err := conn.Retr(path.Join(cfg.Path, path.Base(remoteID)))
	if err != nil {
		return nil, domain.NewProviderError("download", "the file may have been moved or deleted", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, domain.NewProviderError("download", "transfer was interrupted, retry the import", err)
	}
	return data, nil
}

func (c *Connector) connect(ctx context.Context, cfg domain.SourceConfig) (*ftp.ServerConn, error) {
	if len(c.password) == 0 {
		return nil, domain.ErrNotConnected
	}

	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, port)

	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(dialTimeout),
		ftp.DialWithExplicitTLS(&tls.Config{ServerName: cfg.Host}),
	)
	if err != nil {
		return nil, domain.NewProviderError("connect", "check host, port and TLS support", err)
	}

	if err := conn.Login(cfg.Username, string(c.password)); err != nil {
		conn.Quit()
		return nil, domain.NewProviderError("connect", "the server rejected the stored credentials", domain.ErrProviderAuth)
	}
	return conn, nil
}

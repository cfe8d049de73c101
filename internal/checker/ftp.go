package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/nao1215/linkcheck/internal/crawler"
	"github.com/nao1215/linkcheck/internal/model"
)

const (
	ftpDefaultPort   = "21"
	ftpAnonymousUser = "anonymous"
	ftpAnonymousPass = "anonymous@"
)

// ftpConn is the pooled control connection to one FTP server. The server
// is dialed and logged in anonymously on first use.
type ftpConn struct {
	addr    string
	dial    dialContextFunc
	timeout time.Duration

	conn   net.Conn
	server *ftp.ServerConn
}

func newFTPConn(u *url.URL, dial dialContextFunc, timeout time.Duration) *ftpConn {
	port := u.Port()
	if port == "" {
		port = ftpDefaultPort
	}
	return &ftpConn{
		addr:    net.JoinHostPort(u.Hostname(), port),
		dial:    dial,
		timeout: timeout,
	}
}

// open connects through the checker's dialer and logs in.
func (c *ftpConn) open(ctx context.Context) error {
	if c.server != nil {
		return nil
	}

	dialFunc := func(network, address string) (net.Conn, error) {
		conn, err := c.dial(ctx, network, address)
		if err != nil {
			return nil, err
		}
		c.conn = conn
		c.extendDeadline()
		return conn, nil
	}
	server, err := ftp.Dial(c.addr, ftp.DialWithDialFunc(dialFunc))
	if err != nil {
		c.conn = nil
		return err
	}
	c.server = server

	c.extendDeadline()
	if err := server.Login(ftpAnonymousUser, ftpAnonymousPass); err != nil {
		_ = c.Close()
		return fmt.Errorf("%w: %v", ErrFTPLogin, err)
	}
	return nil
}

func (c *ftpConn) extendDeadline() {
	if c.timeout > 0 && c.conn != nil {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
}

// Close sends QUIT and closes the connection.
func (c *ftpConn) Close() error {
	if c.server == nil {
		return nil
	}
	c.extendDeadline()
	err := c.server.Quit()
	c.server = nil
	c.conn = nil
	return err
}

// checkFTP checks an ftp URL. The root path only needs a successful login;
// other paths must be a file (SIZE) or a directory (CWD).
func (c *Checker) checkFTP(ctx context.Context, task model.CheckTask, u *url.URL, r *model.Result, s *crawler.Session) error {
	host, err := model.HostKey(task.URL)
	if err != nil {
		r.Fail(err)
		return nil
	}
	h, err := s.Pool.Acquire(ctx, host)
	if err != nil {
		r.Fail(err)
		return nil
	}
	conn, ok := h.Conn().(*ftpConn)
	if !ok {
		s.Pool.Discard(h)
		r.Fail(fmt.Errorf("%w: %T", ErrUnexpectedConn, h.Conn()))
		return nil
	}

	if err := conn.open(ctx); err != nil {
		s.Pool.Discard(h)
		r.Fail(err)
		return nil
	}

	if err := checkFTPPath(conn, u, r); err != nil {
		s.Pool.Discard(h)
		r.Fail(err)
		return nil
	}
	s.Pool.Release(h)
	return nil
}

// checkFTPPath checks a path on a logged-in connection. A negative
// server reply fails the result; only network failures are returned.
func checkFTPPath(conn *ftpConn, u *url.URL, r *model.Result) error {
	path := u.Path
	if path == "" || path == "/" {
		r.Message = "logged in"
		return nil
	}

	conn.extendDeadline()
	size, err := conn.server.FileSize(path)
	if err == nil {
		r.Size = size
		r.Message = "file found"
		return nil
	}
	if !isFTPReply(err) {
		return err
	}

	conn.extendDeadline()
	err = conn.server.ChangeDir(path)
	if err == nil {
		// Later checks on this connection use absolute paths, so the
		// working directory does not matter.
		r.Message = "directory found"
		return nil
	}
	if !isFTPReply(err) {
		return err
	}

	r.Fail(fmt.Errorf("%w: %v", ErrFTPNotFound, err))
	return nil
}

// isFTPReply reports whether err is a negative server reply rather than a
// broken connection.
func isFTPReply(err error) bool {
	var reply *textproto.Error
	return errors.As(err, &reply)
}

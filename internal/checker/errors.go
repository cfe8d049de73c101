package checker

import "errors"

var (
	// ErrBadStatus marks a response with a 4xx or 5xx status.
	ErrBadStatus = errors.New("bad HTTP status")

	// ErrInvalidAddress marks a mailto URL with a malformed address.
	ErrInvalidAddress = errors.New("invalid mail address")

	// ErrFileNotFound marks a file URL whose path does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrFTPLogin marks an FTP server that rejected the anonymous login.
	ErrFTPLogin = errors.New("FTP login failed")

	// ErrFTPNotFound marks an ftp URL whose path is neither a file nor a
	// directory.
	ErrFTPNotFound = errors.New("FTP path not found")

	// ErrInvalidHost is returned by Dial for a malformed host key.
	ErrInvalidHost = errors.New("invalid host")

	// ErrUnexpectedConn is returned when the pool hands out a connection
	// this checker did not dial.
	ErrUnexpectedConn = errors.New("unexpected pooled connection type")

	// ErrInvalidProxyAddress is returned when the proxy address is not
	// in "host:port" format.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

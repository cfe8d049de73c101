package cookie

import "errors"

var (
	// ErrPublicSuffix is returned when a domain cookie targets a public
	// suffix such as "com".
	ErrPublicSuffix = errors.New("cookie domain is a public suffix")

	// ErrEmptyDomain is returned when no domain is given.
	ErrEmptyDomain = errors.New("cookie domain is empty")

	// ErrEmptyName is returned for a cookie without a name.
	ErrEmptyName = errors.New("cookie name is empty")
)

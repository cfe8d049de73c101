package checker

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/nao1215/linkcheck/internal/crawler"
	"github.com/nao1215/linkcheck/internal/model"
)

// checkMail validates the address syntax of a mailto URL. Multiple
// comma-separated recipients and the query part (subject, cc, body) are
// accepted; cc and bcc addresses are validated too.
func (c *Checker) checkMail(_ context.Context, _ model.CheckTask, u *url.URL, r *model.Result, _ *crawler.Session) error {
	addrs := splitAddresses(u.Opaque)
	if u.Opaque == "" {
		addrs = splitAddresses(u.Path)
	}
	for _, key := range []string{"to", "cc", "bcc"} {
		for _, v := range u.Query()[key] {
			addrs = append(addrs, splitAddresses(v)...)
		}
	}

	if len(addrs) == 0 {
		r.AddWarning("mailto URL without address")
		r.Message = "no addresses"
		return nil
	}

	for _, addr := range addrs {
		parsed, err := mail.ParseAddress(addr)
		if err != nil {
			r.Fail(fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err))
			return nil
		}
		if !strings.Contains(parsed.Address, ".") {
			r.AddWarning("address %s has no domain part with a dot", parsed.Address)
		}
	}

	r.Message = fmt.Sprintf("%d valid address(es)", len(addrs))
	return nil
}

func splitAddresses(s string) []string {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	decoded, err := url.PathUnescape(s)
	if err == nil {
		s = decoded
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

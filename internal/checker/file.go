package checker

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/linkcheck/internal/crawler"
	"github.com/nao1215/linkcheck/internal/model"
)

// checkFile checks that a local file exists. Directories yield their
// entries as children and HTML files are parsed for links.
func (c *Checker) checkFile(_ context.Context, task model.CheckTask, u *url.URL, r *model.Result, _ *crawler.Session) error {
	path := filepath.FromSlash(u.Path)
	info, err := os.Stat(path)
	if err != nil {
		r.Fail(fmt.Errorf("%w: %v", ErrFileNotFound, err))
		return nil
	}

	if info.IsDir() {
		r.Message = "directory"
		if task.Extern {
			return nil
		}
		return c.listDir(u, path, r)
	}

	r.Size = info.Size()
	r.ContentType = mime.TypeByExtension(filepath.Ext(path))
	if i := strings.IndexByte(r.ContentType, ';'); i >= 0 {
		r.ContentType = r.ContentType[:i]
	}
	r.Message = "file exists"

	if task.Extern || !isHTML(r.ContentType) {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		r.Fail(err)
		return nil
	}
	defer f.Close()

	links, err := parseLinks(f, u, "text/html")
	if err != nil {
		r.AddWarning("failed to parse HTML: %v", err)
		return nil
	}
	r.Children = append(r.Children, links...)
	return nil
}

// listDir adds the directory entries of path as children.
func (c *Checker) listDir(u *url.URL, path string, r *model.Result) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		r.Fail(err)
		return nil
	}

	base := *u
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		child := base.ResolveReference(&url.URL{Path: name})
		r.Children = append(r.Children, child.String())
	}
	return nil
}

// Package static resolves request paths against a content root and infers the
// content type of what it finds.
package static

import (
	"errors"
	"io/fs"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotFound is returned when a path does not name a regular file under the
// content root, including every path rejected as unsafe.
var ErrNotFound = errors.New("static: not found")

// IndexFile is served for the root path.
const IndexFile = "index.html"

// Asset is a resolved static file.
type Asset struct {
	Name        string
	Data        []byte
	ContentType string
	ModTime     time.Time
}

// Resolver looks up static assets in a file system.
type Resolver struct {
	root fs.FS
}

// NewResolver returns a Resolver over root.
func NewResolver(root fs.FS) *Resolver {
	return &Resolver{root: root}
}

// NewDirResolver returns a Resolver over the directory dir.
func NewDirResolver(dir string) *Resolver {
	return NewResolver(os.DirFS(dir))
}

// Resolve maps urlPath to a file under the root and reads it.
func (r *Resolver) Resolve(urlPath string) (Asset, error) {
	if r == nil || r.root == nil {
		return Asset{}, ErrNotFound
	}

	rel, ok := relPath(urlPath)
	if !ok {
		return Asset{}, ErrNotFound
	}

	info, err := fs.Stat(r.root, rel)
	if err != nil || !info.Mode().IsRegular() {
		return Asset{}, ErrNotFound
	}

	data, err := fs.ReadFile(r.root, rel)
	if err != nil {
		return Asset{}, ErrNotFound
	}

	return Asset{
		Name:        rel,
		Data:        data,
		ContentType: ContentType(rel, data),
		ModTime:     info.ModTime(),
	}, nil
}

// relPath turns a URL path into a clean fs.FS path, rejecting traversal and
// absolute-path tricks so lookups cannot escape the root.
func relPath(urlPath string) (string, bool) {
	if urlPath == "" || urlPath == "/" {
		return IndexFile, true
	}
	if !strings.HasPrefix(urlPath, "/") {
		return "", false
	}

	rel := strings.TrimPrefix(urlPath, "/")

	// %00 survives URL decoding
	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}
	if strings.HasPrefix(rel, "/") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if !fs.ValidPath(clean) || clean == "." {
		return "", false
	}
	return clean, true
}

// ContentType infers the MIME type of a file from its extension, falling back
// to sniffing the content.
func ContentType(name string, data []byte) string {
	if ext := path.Ext(name); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	return mimetype.Detect(data).String()
}

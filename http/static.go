package http

import (
	"mime"
	"net"
	"path/filepath"
	"strings"

	"github.com/freekieb7/shale/filesystem"
	"github.com/freekieb7/shale/session"
)

// MountStatic walks dir and registers one closing handler per regular
// file found there. Each handler re-reads its file on every request,
// so edits show up without re-mounting. URIs are the file paths with
// the stem prefix stripped; a stem of "" serves the tree rooted at
// "/<dir>".
//
// This is a convenience wrapper for prototypes, not a production file
// server.
func MountStatic(reg *Registry, fsys filesystem.Filesystem, dir, stem string) error {
	isDir, err := fsys.IsDirectory(dir)
	if err != nil {
		return err
	}
	if !isDir {
		reg.Handle(staticURI(dir, stem), fileHandler(fsys, dir))
		return nil
	}

	return fsys.WalkFiles(dir, func(path string) error {
		reg.Handle(staticURI(path, stem), fileHandler(fsys, path))
		return nil
	})
}

func staticURI(path, stem string) string {
	uri := filepath.ToSlash(path)
	uri = strings.TrimPrefix(uri, filepath.ToSlash(stem))
	uri = strings.TrimPrefix(uri, "/")
	return "/" + uri
}

// fileHandler serves one file as a closing response with its MIME type.
func fileHandler(fsys filesystem.Filesystem, path string) Handler {
	return func(conn net.Conn, hadCookie bool, sess *session.Session, req *Request) (bool, error) {
		content, err := fsys.ReadFile(path)
		if err != nil {
			return false, err
		}

		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		// TypeByExtension may include a charset parameter; the writer
		// appends its own.
		if i := strings.Index(contentType, ";"); i >= 0 {
			contentType = contentType[:i]
		}

		resp := Response{
			ContentType: contentType,
			Body:        content,
		}
		if !hadCookie {
			resp.Cookie = sess.Token
		}
		return false, resp.WriteTo(conn)
	}
}

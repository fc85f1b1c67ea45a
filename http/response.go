package http

import (
	"io"
	"strconv"
	"strings"
)

// Response is a plain value serialized by WriteTo. Zero fields take
// the documented defaults at write time.
type Response struct {
	Code        string // default "200 OK"
	ContentType string // default "text/html"
	Charset     string // default "utf-8"
	Cookie      string
	Location    string
	KeepAlive   bool
	Body        []byte
}

// WriteTo serializes the response. Set-Cookie and Location appear only
// when set; Connection and Expires only for keep-alive responses;
// Content-Length, the blank separator and the body only when a body is
// present.
func (r *Response) WriteTo(w io.Writer) error {
	code := r.Code
	if code == "" {
		code = StatusOK
	}
	contentType := r.ContentType
	if contentType == "" {
		contentType = "text/html"
	}
	charset := r.Charset
	if charset == "" {
		charset = "utf-8"
	}

	var b strings.Builder
	b.WriteString("HTTP/1.1 ")
	b.WriteString(code)
	b.WriteString("\r\n")
	b.WriteString("Content-Type: ")
	b.WriteString(contentType)
	b.WriteString("; charset=")
	b.WriteString(charset)
	b.WriteString("\r\n")
	b.WriteString("Cache-Control: no-cache, no-store, must-revalidate\r\n")
	if r.Cookie != "" {
		b.WriteString("Set-Cookie: ")
		b.WriteString(r.Cookie)
		b.WriteString("\r\n")
	}
	if r.Location != "" {
		b.WriteString("Location: ")
		b.WriteString(r.Location)
		b.WriteString("\r\n")
	}
	if r.KeepAlive {
		b.WriteString("Connection: keep-alive\r\n")
		b.WriteString("Expires: Thu, 01 Jan 1970 00:00:01 GMT\r\n")
	}
	if r.Body != nil {
		b.WriteString("Content-Length: ")
		b.WriteString(strconv.Itoa(len(r.Body)))
		b.WriteString("\r\n\r\n")
		b.Write(r.Body)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

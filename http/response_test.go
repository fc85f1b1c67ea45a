package http

import (
	"strings"
	"testing"
)

func TestResponseDefaults(t *testing.T) {
	var out strings.Builder
	resp := Response{Body: []byte("Hello")}

	if err := resp.WriteTo(&out); err != nil {
		t.Fatal(err)
	}

	expected := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"Cache-Control: no-cache, no-store, must-revalidate\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"Hello"
	if out.String() != expected {
		t.Errorf("Expected %q, got %q", expected, out.String())
	}
}

func TestResponseWithoutBodyHasNoSeparator(t *testing.T) {
	var out strings.Builder
	resp := Response{ContentType: "text/event-stream", KeepAlive: true}

	if err := resp.WriteTo(&out); err != nil {
		t.Fatal(err)
	}

	expected := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/event-stream; charset=utf-8\r\n" +
		"Cache-Control: no-cache, no-store, must-revalidate\r\n" +
		"Connection: keep-alive\r\n" +
		"Expires: Thu, 01 Jan 1970 00:00:01 GMT\r\n"
	if out.String() != expected {
		t.Errorf("Expected %q, got %q", expected, out.String())
	}
}

func TestResponseCookieAndLocation(t *testing.T) {
	var out strings.Builder
	resp := Response{
		Code:     StatusMovedPermanently,
		Cookie:   "tok",
		Location: "/elsewhere",
		Body:     []byte("Resource moved..."),
	}

	if err := resp.WriteTo(&out); err != nil {
		t.Fatal(err)
	}

	s := out.String()
	if !strings.HasPrefix(s, "HTTP/1.1 301 Moved Permanently\r\n") {
		t.Errorf("Expected 301 status line, got %q", s)
	}
	if !strings.Contains(s, "Set-Cookie: tok\r\n") {
		t.Errorf("Expected Set-Cookie header in %q", s)
	}
	if !strings.Contains(s, "Location: /elsewhere\r\n") {
		t.Errorf("Expected Location header in %q", s)
	}
	if strings.Contains(s, "Connection:") {
		t.Errorf("Expected no Connection header in %q", s)
	}
}

func TestStatusCode(t *testing.T) {
	if statusCode(StatusBadRequest) != "400" {
		t.Errorf("Expected 400, got %s", statusCode(StatusBadRequest))
	}
	if statusCode("200") != "200" {
		t.Errorf("Expected 200, got %s", statusCode("200"))
	}
}

package http

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// tcpPair returns the two ends of a loopback TCP connection.
func tcpPair(t *testing.T) (client, server net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		server, err = ln.Accept()
		close(done)
	}()

	client, dialErr := net.Dial("tcp", ln.Addr().String())
	if dialErr != nil {
		t.Fatal(dialErr)
	}
	<-done
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

// pollUntil drives buffer reads the way the event loop does, until the
// condition holds or the deadline passes.
func pollUntil(t *testing.T, buf *buffer, limit int, condition func() bool) error {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := buf.read(limit); err != nil {
			return err
		}
		if condition() {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
	return nil
}

func TestBufferFindsTerminator(t *testing.T) {
	client, server := tcpPair(t)
	buf := newBuffer("test", server)

	if _, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatal(err)
	}

	if err := pollUntil(t, buf, DefaultMaxRequestSize, func() bool { return buf.foundTerminator }); err != nil {
		t.Fatal(err)
	}

	if !strings.HasSuffix(string(buf.contents), "\r\n\r\n") {
		t.Errorf("Expected contents to end with terminator, got %q", buf.contents)
	}
	if buf.tries < 1 {
		t.Errorf("Expected tries to be counted, got %d", buf.tries)
	}
}

func TestBufferKeepsReadingAfterTerminator(t *testing.T) {
	client, server := tcpPair(t)
	buf := newBuffer("test", server)

	msg := "POST /f HTTP/1.1\r\nContent-Length: 7\r\n\r\na=1&b=2"
	if _, err := client.Write([]byte(msg)); err != nil {
		t.Fatal(err)
	}

	if err := pollUntil(t, buf, DefaultMaxRequestSize, func() bool { return buf.size() == len(msg) }); err != nil {
		t.Fatal(err)
	}

	if !buf.foundTerminator {
		t.Error("Expected terminator to be found")
	}
	if string(buf.contents) != msg {
		t.Errorf("Expected body bytes to accumulate, got %q", buf.contents)
	}
}

func TestBufferTerminatorSplitAcrossWrites(t *testing.T) {
	client, server := tcpPair(t)
	buf := newBuffer("test", server)

	if _, err := client.Write([]byte("GET / HTTP/1.1\r\n\r")); err != nil {
		t.Fatal(err)
	}
	if err := pollUntil(t, buf, DefaultMaxRequestSize, func() bool { return buf.size() == 17 }); err != nil {
		t.Fatal(err)
	}
	if buf.foundTerminator {
		t.Error("Expected no terminator yet")
	}

	if _, err := client.Write([]byte("\n")); err != nil {
		t.Fatal(err)
	}
	if err := pollUntil(t, buf, DefaultMaxRequestSize, func() bool { return buf.foundTerminator }); err != nil {
		t.Fatal(err)
	}
}

func TestBufferReturnsEOFWhenPeerCloses(t *testing.T) {
	client, server := tcpPair(t)
	buf := newBuffer("test", server)

	client.Close()

	var err error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err = buf.read(DefaultMaxRequestSize); err != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF after peer close, got %v", err)
	}
}

func TestBufferStopsAtLimit(t *testing.T) {
	client, server := tcpPair(t)
	buf := newBuffer("test", server)

	limit := 64
	payload := strings.Repeat("x", 4*limit)
	go client.Write([]byte(payload))

	if err := pollUntil(t, buf, limit, func() bool { return buf.size() > limit }); err != nil {
		t.Fatal(err)
	}
	// read returns as soon as the limit is crossed; the loop is then
	// expected to classify the abort as too_big.
}

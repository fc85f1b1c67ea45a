package http

import (
	"bytes"
	"io"
	"net"
	"time"
)

var crlfcrlf = []byte("\r\n\r\n")

// readPollWait bounds how long one Read waits for bytes that have not
// arrived yet.
const readPollWait = time.Millisecond

// buffer accumulates one request's bytes for a single connection. The
// event loop calls read once per cycle; read drains whatever the
// socket has available right now and waits at most readPollWait for
// more.
type buffer struct {
	id        string
	conn      net.Conn
	contents  []byte
	startedAt time.Time
	tries     int

	// foundTerminator flips to true exactly once, when the header
	// terminator CRLF CRLF first appears. Bytes arriving afterwards
	// (an urlencoded body) keep accumulating.
	foundTerminator bool
}

func newBuffer(id string, conn net.Conn) *buffer {
	return &buffer{
		id:        id,
		conn:      conn,
		startedAt: time.Now(),
	}
}

func (b *buffer) size() int {
	return len(b.contents)
}

func (b *buffer) age() time.Duration {
	return time.Since(b.startedAt)
}

// read drains the currently available bytes with a short poll. It
// returns nil when the socket simply has nothing more to offer, io.EOF
// when the peer is gone (every I/O error maps to EOF), and returns
// early once contents exceed limit so the loop can classify the abort.
func (b *buffer) read(limit int) error {
	b.tries++

	chunk := make([]byte, readChunkSize)
	for {
		// A deadline already in the past fails Read before it looks at
		// the socket, so each poll gets a short window instead.
		if err := b.conn.SetReadDeadline(time.Now().Add(readPollWait)); err != nil {
			return io.EOF
		}

		n, err := b.conn.Read(chunk)
		if n > 0 {
			b.push(chunk[:n])
			if len(b.contents) > limit {
				return nil
			}
		}
		if err != nil {
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				return nil
			}
			return io.EOF
		}
	}
}

// push appends freshly read bytes, watching for the terminator as each
// byte lands so that foundTerminator flips on the exact boundary.
func (b *buffer) push(data []byte) {
	for _, c := range data {
		b.contents = append(b.contents, c)
		if !b.foundTerminator && len(b.contents) >= len(crlfcrlf) {
			tail := b.contents[len(b.contents)-len(crlfcrlf):]
			if bytes.Equal(tail, crlfcrlf) {
				b.foundTerminator = true
			}
		}
	}
}

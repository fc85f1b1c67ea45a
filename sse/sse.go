// Package sse holds the server-sent-events framing and the channel
// manager that broadcasts frames to subscribed sockets.
package sse

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Event is one server-sent-events frame. Only Data is required.
// Frames use bare newline terminators, never CRLF.
type Event struct {
	ID    string
	Name  string
	Retry int
	Data  string
}

func (e Event) String() string {
	var b strings.Builder
	if e.ID != "" {
		b.WriteString("id: ")
		b.WriteString(e.ID)
		b.WriteByte('\n')
	}
	if e.Name != "" {
		b.WriteString("event: ")
		b.WriteString(e.Name)
		b.WriteByte('\n')
	}
	if e.Retry > 0 {
		b.WriteString("retry: ")
		b.WriteString(strconv.Itoa(e.Retry))
		b.WriteByte('\n')
	}
	b.WriteString("data: ")
	b.WriteString(e.Data)
	b.WriteString("\n\n")
	return b.String()
}

func (e Event) WriteTo(w io.Writer) error {
	_, err := io.WriteString(w, e.String())
	return err
}

// Hub maps channel keys to their subscribed sockets. It is mutated
// only from the event-loop goroutine, so it carries no lock. Channels
// reference sockets weakly: a failed write is the one and only reaping
// mechanism.
type Hub struct {
	channels map[string][]io.Writer
	log      *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		channels: make(map[string][]io.Writer),
		log:      log,
	}
}

// Subscribe prepends w to the channel, so the newest subscriber is
// delivered to first.
func (h *Hub) Subscribe(channel string, w io.Writer) {
	h.channels[channel] = append([]io.Writer{w}, h.channels[channel]...)
}

// Publish writes one frame with the given data to every subscriber of
// the channel and rebuilds the subscriber list to keep only the
// sockets whose write succeeded. It returns the number of successful
// deliveries.
func (h *Hub) Publish(channel, message string) int {
	frame := Event{Data: message}.String()

	subscribers := h.channels[channel]
	kept := subscribers[:0]
	for _, w := range subscribers {
		if _, err := io.WriteString(w, frame); err != nil {
			h.log.Debug("sse: dropping dead subscriber", "channel", channel, "error", err)
			continue
		}
		kept = append(kept, w)
	}
	h.channels[channel] = kept
	return len(kept)
}

// Subscribers reports the current subscriber count of a channel.
func (h *Hub) Subscribers(channel string) int {
	return len(h.channels[channel])
}

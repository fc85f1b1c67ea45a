package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/freekieb7/shale/session"
	"github.com/freekieb7/shale/sse"
	"github.com/freekieb7/shale/uuid"
)

const scope = "github.com/freekieb7/shale/http"

// Server owns the listener, the connection table, and the process-wide
// handler, type, session and channel tables. One goroutine runs the
// whole show: Serve multiplexes readiness by polling every tracked
// socket with a short read deadline each cycle.
type Server struct {
	cfg Config
	log *slog.Logger

	registry *Registry
	types    *Types
	hub      *sse.Hub
	sessions *session.Store

	ln      net.Listener
	conns   map[net.Conn]*buffer
	streams map[net.Conn]struct{}
	stopped atomic.Bool

	tracer          trace.Tracer
	requests        metric.Int64Counter
	activeConns     metric.Int64UpDownCounter
	publishedEvents metric.Int64Counter
	sessionsCreated metric.Int64Counter
}

func NewServer(cfg Config) (*Server, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	types := NewTypes()
	hub := sse.NewHub(cfg.Logger)
	sessions := session.NewStore(cfg.MaxSessionIdle, cfg.CleanSessionsEvery)

	s := &Server{
		cfg:      cfg,
		log:      cfg.Logger,
		registry: NewRegistry(types, hub, cfg.Logger),
		types:    types,
		hub:      hub,
		sessions: sessions,
		conns:    make(map[net.Conn]*buffer),
		streams:  make(map[net.Conn]struct{}),
		tracer:   otel.Tracer(scope),
	}

	meter := otel.Meter(scope)
	var err error
	if s.requests, err = meter.Int64Counter("shale.requests",
		metric.WithDescription("Requests answered, by status")); err != nil {
		return nil, err
	}
	if s.activeConns, err = meter.Int64UpDownCounter("shale.connections.active",
		metric.WithDescription("Sockets currently tracked by the loop")); err != nil {
		return nil, err
	}
	if s.publishedEvents, err = meter.Int64Counter("shale.sse.published",
		metric.WithDescription("SSE frames delivered to subscribers")); err != nil {
		return nil, err
	}
	if s.sessionsCreated, err = meter.Int64Counter("shale.sessions.created",
		metric.WithDescription("Sessions created")); err != nil {
		return nil, err
	}

	return s, nil
}

// Registry exposes the handler table for registration.
func (s *Server) Registry() *Registry { return s.registry }

// Types exposes the parameter type registry.
func (s *Server) Types() *Types { return s.types }

// Sessions exposes the session table, mainly for hook registration.
func (s *Server) Sessions() *session.Store { return s.sessions }

// Hub exposes the SSE channel table.
func (s *Server) Hub() *sse.Hub { return s.hub }

// Publish broadcasts message on channel and records the deliveries.
func (s *Server) Publish(channel, message string) int {
	delivered := s.hub.Publish(channel, message)
	s.publishedEvents.Add(context.Background(), int64(delivered),
		metric.WithAttributes(attribute.String("channel", channel)))
	return delivered
}

// Stop asks the loop to exit on its next cycle. Serve then closes
// every tracked socket and the listener and returns nil.
func (s *Server) Stop() {
	s.stopped.Store(true)
}

// ListenAndServe binds host:port and runs the loop until a fatal error
// or Stop.
func (s *Server) ListenAndServe(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

type deadlineListener interface {
	net.Listener
	SetDeadline(time.Time) error
}

// Serve runs the event loop on the calling goroutine. Each cycle
// accepts at most one new connection (bounded by the poll interval)
// and then gives every tracked socket one short read poll, applying
// the abort rules in severity order.
func (s *Server) Serve(ln net.Listener) error {
	dl, ok := ln.(deadlineListener)
	if !ok {
		return fmt.Errorf("http: listener %T does not support deadlines", ln)
	}
	s.ln = ln
	s.log.Info("http: serving", "addr", ln.Addr().String())

	defer s.closeAll()

	for !s.stopped.Load() {
		if err := dl.SetDeadline(time.Now().Add(s.cfg.PollInterval)); err != nil {
			return err
		}
		conn, err := ln.Accept()
		switch {
		case err == nil:
			s.conns[conn] = nil
			s.activeConns.Add(context.Background(), 1)
		case isTimeout(err):
			// Nothing new this cycle.
		default:
			return err
		}

		for conn, buf := range s.conns {
			if buf == nil {
				buf = newBuffer(uuid.NewV4().String(), conn)
				s.conns[conn] = buf
			}

			err := buf.read(s.cfg.MaxRequestSize)
			if err != nil {
				// Peer is gone; any I/O trouble counts as EOF.
				s.drop(conn)
				continue
			}

			switch {
			case buf.size() > s.cfg.MaxRequestSize:
				s.fail(conn, buf, StatusPayloadTooLarge, "request too large")
			case buf.age() > s.cfg.MaxRequestAge:
				s.fail(conn, buf, StatusBadRequest, "request too old")
			case buf.tries > s.cfg.MaxBufferTries:
				s.fail(conn, buf, StatusBadRequest, "request took too many reads")
			case buf.foundTerminator:
				if err := s.dispatch(conn, buf); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// dispatch parses and answers one complete request. The returned error
// is fatal to the loop; per-request failures are answered on the wire
// and swallowed.
func (s *Server) dispatch(conn net.Conn, buf *buffer) error {
	_, span := s.tracer.Start(context.Background(), "shale.dispatch")
	defer span.End()

	status := StatusOK
	defer func() {
		span.SetAttributes(attribute.String("status", statusCode(status)))
		s.requests.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("status", statusCode(status))))
	}()

	req, err := ParseRequest(buf.contents)
	if err != nil {
		s.log.Debug("http: unparsable request", "conn", buf.id, "error", err)
		status = StatusBadRequest
		s.fail(conn, buf, status, "malformed request")
		return nil
	}
	span.SetAttributes(attribute.String("resource", req.Resource))

	sess := s.sessions.Get(req.SessionToken)
	hadCookie := sess != nil
	if sess == nil {
		// Hooks are privileged; their failure kills the loop.
		sess, err = s.sessions.New()
		if err != nil {
			return err
		}
		s.sessionsCreated.Add(context.Background(), 1)
	}

	handler, found := s.registry.Lookup(req.Resource)
	if !found {
		s.log.Debug("http: no handler", "resource", req.Resource)
		status = StatusNotFound
		s.fail(conn, buf, status, "Not Found")
		return nil
	}

	keepOpen, err := handler(conn, hadCookie, sess, req)
	switch {
	case err == nil && keepOpen:
		// Socket now belongs to the channels the body subscribed to.
		delete(s.conns, conn)
		s.streams[conn] = struct{}{}
	case err == nil:
		s.drop(conn)
	case errors.Is(err, ErrAssertion):
		status = StatusBadRequest
		s.fail(conn, buf, status, "Bad Request")
	default:
		s.log.Warn("http: handler error", "resource", req.Resource, "conn", buf.id, "error", err)
		status = StatusInternalServerError
		s.fail(conn, buf, status, "Internal Server Error")
	}
	return nil
}

// fail answers with a terse error response and drops the connection.
// Write errors are swallowed: the peer is already gone.
func (s *Server) fail(conn net.Conn, buf *buffer, status, message string) {
	resp := Response{Code: status, Body: []byte(message)}
	if err := resp.WriteTo(conn); err != nil {
		s.log.Debug("http: error response not delivered", "conn", buf.id, "error", err)
	}
	s.drop(conn)
}

// drop closes a connection and forgets it.
func (s *Server) drop(conn net.Conn) {
	delete(s.conns, conn)
	_ = conn.Close()
	s.activeConns.Add(context.Background(), -1)
}

// closeAll tears down every tracked socket, the retained SSE sockets,
// and the listener.
func (s *Server) closeAll() {
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = make(map[net.Conn]*buffer)
	for conn := range s.streams {
		_ = conn.Close()
	}
	s.streams = make(map[net.Conn]struct{})
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.log.Info("http: stopped")
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

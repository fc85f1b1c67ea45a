package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/freekieb7/shale/session"
	"github.com/freekieb7/shale/sse"
)

// Param declares one handler parameter: a name, the name of a
// registered type, and any number of predicates evaluated against the
// converted value and every previously bound parameter.
type Param struct {
	Name       string
	Type       string
	Predicates []Predicate
}

// Predicate checks a converted value. bound holds the parameters that
// were bound before this one, keyed by name.
type Predicate func(value any, bound map[string]any) bool

// P builds a typed parameter spec.
func P(name, typeName string, predicates ...Predicate) Param {
	return Param{Name: name, Type: typeName, Predicates: predicates}
}

// Untyped declares a bare parameter: a required raw string.
func Untyped(name string) Param {
	return Param{Name: name, Type: "string"}
}

// Env holds the bound parameters a handler body sees.
type Env map[string]any

func (e Env) Int(name string) int {
	v, _ := e[name].(int)
	return v
}

func (e Env) String(name string) string {
	v, _ := e[name].(string)
	return v
}

// Ctx is the implicit environment of a handler body: the raw socket,
// the current session, and the full parameter mapping, plus the bound
// typed parameters.
type Ctx struct {
	Conn    net.Conn
	Session *session.Session
	Params  *Params
	Env     Env

	hub *sse.Hub
}

// Subscribe adds the request's socket to an SSE channel. Meaningful
// only inside stream handler bodies.
func (c *Ctx) Subscribe(channel string) {
	c.hub.Subscribe(channel, c.Conn)
}

// Body is a handler body. Its return value becomes the response body
// (closing handlers), the JSON payload (JSON handlers) or the data of
// the initial frame (stream handlers).
type Body func(ctx *Ctx) (any, error)

// Handler services one parsed request. keepOpen reports that the
// socket was handed to the channel manager and must not be closed.
type Handler func(conn net.Conn, hadCookie bool, sess *session.Session, req *Request) (keepOpen bool, err error)

// Registry maps request URIs to handlers. The name "root" registers
// under "/"; any other name foo registers under "/foo", case-folded.
// Re-registration overwrites the previous handler with a warning.
type Registry struct {
	types    *Types
	hub      *sse.Hub
	log      *slog.Logger
	handlers map[string]Handler
}

func NewRegistry(types *Types, hub *sse.Hub, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		types:    types,
		hub:      hub,
		log:      log,
		handlers: make(map[string]Handler),
	}
}

func uriFor(name string) string {
	if name == "root" {
		return "/"
	}
	if strings.HasPrefix(name, "/") {
		return strings.ToLower(name)
	}
	return "/" + strings.ToLower(name)
}

// Handle registers h under the URI derived from name.
func (r *Registry) Handle(name string, h Handler) {
	uri := uriFor(name)
	if _, exists := r.handlers[uri]; exists {
		r.log.Warn("http: redefining handler", "uri", uri)
	}
	r.handlers[uri] = h
}

// Lookup resolves a request resource to its handler.
func (r *Registry) Lookup(resource string) (Handler, bool) {
	h, ok := r.handlers[strings.ToLower(resource)]
	return h, ok
}

// URIs returns the registered URIs, for introspection and tests.
func (r *Registry) URIs() []string {
	uris := make([]string, 0, len(r.handlers))
	for uri := range r.handlers {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Closing registers a handler that writes one text/html response and
// closes the socket.
func (r *Registry) Closing(name string, spec []Param, body Body) {
	r.Handle(name, r.closing("text/html", spec, body))
}

// JSON registers a closing handler whose body value is JSON-encoded
// and served as application/json.
func (r *Registry) JSON(name string, spec []Param, body Body) {
	jsonBody := func(ctx *Ctx) (any, error) {
		v, err := body(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return encoded, nil
	}
	r.Handle(name, r.closing("application/json", spec, jsonBody))
}

// Stream registers an SSE handler: it writes the event-stream response
// preamble and an initial frame, then leaves the socket open for
// publishes on whatever channels the body subscribed to.
func (r *Registry) Stream(name string, spec []Param, body Body) {
	types := r.types
	hub := r.hub
	r.Handle(name, func(conn net.Conn, hadCookie bool, sess *session.Session, req *Request) (bool, error) {
		env, err := bindParams(types, spec, req.Params)
		if err != nil {
			return false, err
		}
		ctx := &Ctx{Conn: conn, Session: sess, Params: req.Params, Env: env, hub: hub}
		v, err := callBody(body, ctx)
		if err != nil {
			return false, err
		}

		resp := Response{
			ContentType: "text/event-stream",
			KeepAlive:   true,
		}
		if !hadCookie {
			resp.Cookie = sess.Token
		}
		if err := resp.WriteTo(conn); err != nil {
			return false, err
		}
		if _, err := io.WriteString(conn, "\r\n"); err != nil {
			return false, err
		}

		data := "Listening..."
		if v != nil {
			data = bodyString(v)
		}
		event := sse.Event{Data: data}
		if err := event.WriteTo(conn); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Redirect registers a handler that answers with 301 or 307 and a
// Location header, then closes.
func (r *Registry) Redirect(name, target string, permanent bool) {
	code := StatusTemporaryRedirect
	if permanent {
		code = StatusMovedPermanently
	}
	r.Handle(name, func(conn net.Conn, hadCookie bool, sess *session.Session, req *Request) (bool, error) {
		resp := Response{
			Code:     code,
			Location: target,
			Body:     []byte("Resource moved..."),
		}
		return false, resp.WriteTo(conn)
	})
}

func (r *Registry) closing(contentType string, spec []Param, body Body) Handler {
	types := r.types
	hub := r.hub
	return func(conn net.Conn, hadCookie bool, sess *session.Session, req *Request) (bool, error) {
		env, err := bindParams(types, spec, req.Params)
		if err != nil {
			return false, err
		}
		ctx := &Ctx{Conn: conn, Session: sess, Params: req.Params, Env: env, hub: hub}
		v, err := callBody(body, ctx)
		if err != nil {
			return false, err
		}

		resp := Response{
			ContentType: contentType,
			Body:        bodyBytes(v),
		}
		if !hadCookie {
			resp.Cookie = sess.Token
		}
		return false, resp.WriteTo(conn)
	}
}

// callBody runs a body, converting panics into handler errors so one
// misbehaving handler cannot take the loop down.
func callBody(body Body, ctx *Ctx) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("http: handler panic: %v", rec)
		}
	}()
	return body(ctx)
}

func bodyBytes(v any) []byte {
	switch b := v.(type) {
	case nil:
		return []byte{}
	case []byte:
		return b
	case string:
		return []byte(b)
	default:
		return []byte(fmt.Sprint(v))
	}
}

func bodyString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// bindParams runs the typed-parameter pipeline: stable-sort the spec
// by type priority, then for each parameter look up the raw value,
// URL-decode, convert, assert, and check predicates against the
// already-bound environment. Every failure maps to ErrAssertion.
func bindParams(types *Types, spec []Param, params *Params) (Env, error) {
	ordered := make([]Param, len(spec))
	copy(ordered, spec)
	for _, p := range ordered {
		if _, ok := types.Lookup(p.Type); !ok {
			return nil, fmt.Errorf("%w: unknown type %q for parameter %q", ErrAssertion, p.Type, p.Name)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, _ := types.Lookup(ordered[i].Type)
		pj, _ := types.Lookup(ordered[j].Type)
		return pi.Priority < pj.Priority
	})

	env := Env{}
	for _, p := range ordered {
		tp, _ := types.Lookup(p.Type)

		raw, ok := params.Get(p.Name)
		if !ok {
			return nil, fmt.Errorf("%w: missing parameter %q", ErrAssertion, p.Name)
		}
		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: undecodable parameter %q: %v", ErrAssertion, p.Name, err)
		}

		var value any = decoded
		if tp.Convert != nil {
			value, err = safeConvert(tp.Convert, decoded)
			if err != nil {
				return nil, fmt.Errorf("%w: converting parameter %q as %s: %v", ErrAssertion, p.Name, p.Type, err)
			}
		}
		if tp.Assert != nil && !safeCheck(func() bool { return tp.Assert(value) }) {
			return nil, fmt.Errorf("%w: parameter %q failed %s assertion", ErrAssertion, p.Name, p.Type)
		}
		for i, predicate := range p.Predicates {
			if !safeCheck(func() bool { return predicate(value, env) }) {
				return nil, fmt.Errorf("%w: parameter %q failed predicate %d", ErrAssertion, p.Name, i)
			}
		}
		env[p.Name] = value
	}
	return env, nil
}

// safeConvert turns a panicking conversion into a conversion error.
func safeConvert(convert func(string) (any, error), raw string) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return convert(raw)
}

// safeCheck treats a panicking assertion or predicate as false.
func safeCheck(check func() bool) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
		}
	}()
	return check()
}

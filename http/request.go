package http

import (
	"fmt"
	"strings"
)

const supportedVersion = "HTTP/1.1"

// Request is the structured form of one parsed request.
type Request struct {
	Method   string
	Resource string
	RawQuery string

	// Headers holds the case-folded header names and their values.
	// The cookie header is diverted into SessionToken instead.
	Headers map[string]string

	// Params merges urlencoded query parameters with urlencoded body
	// parameters, body values after query values.
	Params *Params

	// SessionToken is the raw value of the Cookie header, if any.
	SessionToken string

	// BodyRaw is the line following the blank header separator,
	// unparsed. Non-urlencoded payloads reach handlers through it.
	BodyRaw string
}

// ParseRequest turns an accumulated byte buffer into a Request. It is
// pure: no I/O, no shared state. Malformed input fails with an
// ErrAssertion-wrapped error, which the dispatcher maps to 400.
func ParseRequest(raw []byte) (*Request, error) {
	lines := strings.Split(string(raw), "\r\n")

	method, target, version, err := splitRequestLine(lines[0])
	if err != nil {
		return nil, err
	}
	if version != supportedVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrAssertion, version)
	}

	resource, rawQuery, _ := strings.Cut(target, "?")

	req := Request{
		Method:   method,
		Resource: resource,
		RawQuery: rawQuery,
		Headers:  make(map[string]string),
		Params:   NewParams(),
	}

	i := 1
	for ; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("%w: malformed header line %q", ErrAssertion, line)
		}
		name = strings.ToLower(name)
		if name == "cookie" {
			req.SessionToken = value
			continue
		}
		req.Headers[name] = value
	}

	// One line after the separator is treated as the urlencoded body.
	if i+1 < len(lines) {
		req.BodyRaw = lines[i+1]
	}

	req.Params.parseInto(req.RawQuery)
	req.Params.parseInto(req.BodyRaw)

	return &req, nil
}

func splitRequestLine(line string) (method, target, version string, err error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("%w: malformed request line %q", ErrAssertion, line)
	}
	return parts[0], parts[1], parts[2], nil
}

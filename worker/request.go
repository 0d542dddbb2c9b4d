package worker

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/momentics/serverino/wire"
)

// BasicAuth is the eagerly-extracted username/password from an
// Authorization: Basic header, per SPEC_FULL.md §12: unlike form/cookie
// parsing, which are lazy, Basic auth is cheap enough to decode up front
// so every endpoint sees it without an extra call.
type BasicAuth struct {
	User     string
	Password string
	Present  bool
}

// Request is the worker-side view of one HTTP request, built once per
// request from the raw bytes the daemon forwarded and reset to its zero
// value between requests on the same worker (request-scoped state reset
// invariant, §4.3).
type Request struct {
	Method      string
	RawPath     string // percent-encoded, path portion only
	Path        string // percent-decoded
	Query       url.Values
	Host        string
	Version     string
	Header      *wire.Header
	Body        []byte
	ContentType string
	RemoteAddr  string
	TLS         bool
	Auth        BasicAuth

	// Captures holds named path parameters for this request. NewRequest
	// leaves it nil and none of this package's Matchers bind path
	// parameters; an endpoint earlier in a chain may fill it for later ones.
	Captures map[string]string

	cookies     map[string]string
	cookiesDone bool

	formDecoder FormDecoder
	form        url.Values
	formDone    bool
}

// NewRequest builds a Request from a parsed wire.RequestMeta and its
// associated body bytes. formDecoder may be nil, in which case Form
// always returns an empty url.Values.
func NewRequest(meta *wire.RequestMeta, body []byte, remoteAddr string, tls bool, formDecoder FormDecoder) *Request {
	rawPath := meta.RawTarget
	query := url.Values{}
	if idx := strings.IndexByte(rawPath, '?'); idx >= 0 {
		if q, err := url.ParseQuery(rawPath[idx+1:]); err == nil {
			query = q
		}
		rawPath = rawPath[:idx]
	}
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		path = rawPath
	}

	host := ""
	if meta.Header != nil {
		if h, ok := meta.Header.Get("host"); ok {
			host = h
		}
	}
	contentType := ""
	if meta.Header != nil {
		if ct, ok := meta.Header.Get("content-type"); ok {
			contentType = ct
		}
	}

	r := &Request{
		Method:      meta.Method,
		RawPath:     rawPath,
		Path:        path,
		Query:       query,
		Host:        host,
		Version:     meta.Version,
		Header:      meta.Header,
		Body:        body,
		ContentType: contentType,
		RemoteAddr:  remoteAddr,
		TLS:         tls,
		Captures:    nil,
		formDecoder: formDecoder,
	}
	r.Auth = extractBasicAuth(meta.Header)
	return r
}

func extractBasicAuth(hdr *wire.Header) BasicAuth {
	if hdr == nil {
		return BasicAuth{}
	}
	raw, ok := hdr.Get("authorization")
	if !ok || !strings.HasPrefix(strings.ToLower(raw), "basic ") {
		return BasicAuth{}
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw[6:]))
	if err != nil {
		return BasicAuth{}
	}
	user, pass, found := strings.Cut(string(decoded), ":")
	if !found {
		return BasicAuth{}
	}
	return BasicAuth{User: user, Password: pass, Present: true}
}

// Cookies lazily parses the Cookie header into a name→value map,
// matching the repeated-not-folded Set-Cookie response rule's inverse:
// a single Cookie request header carries every cookie, "; "-separated.
func (r *Request) Cookies() map[string]string {
	if r.cookiesDone {
		return r.cookies
	}
	r.cookiesDone = true
	r.cookies = make(map[string]string)
	if r.Header == nil {
		return r.cookies
	}
	raw, ok := r.Header.Get("cookie")
	if !ok {
		return r.cookies
	}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		r.cookies[strings.TrimSpace(name)] = value
	}
	return r.cookies
}

// Form lazily decodes the request body as form data via the configured
// FormDecoder. Returns an empty url.Values if no decoder is configured
// or decoding fails.
func (r *Request) Form() url.Values {
	if r.formDone {
		return r.form
	}
	r.formDone = true
	if r.formDecoder == nil {
		r.form = url.Values{}
		return r.form
	}
	values, err := r.formDecoder.Decode(r.ContentType, r.Body)
	if err != nil {
		r.form = url.Values{}
		return r.form
	}
	r.form = values
	return r.form
}

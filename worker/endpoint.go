package worker

import "sort"

// RequestOutputFunc is the full-control endpoint signature: it reads the
// Request and writes the Output directly.
type RequestOutputFunc func(*Request, *Output)

// RequestOnlyFunc inspects (and may mutate route-scoped Captures on) the
// Request without touching Output — typically used for fallthrough
// pre-processing ahead of a later endpoint in the same chain.
type RequestOnlyFunc func(*Request)

// OutputOnlyFunc writes a response without needing anything from the
// Request — static content, health checks.
type OutputOnlyFunc func(*Output)

// WebSocketFunc takes over a connection after a successful upgrade
// handshake and owns it until it returns.
type WebSocketFunc func(*Request, *Session)

type handlerKind int

const (
	kindRequestOutput handlerKind = iota
	kindRequestOnly
	kindOutputOnly
	kindWebSocket
)

// Matcher decides whether an Entry applies to a given Request.
type Matcher func(*Request) bool

// PathEquals matches requests whose decoded Path equals path exactly.
func PathEquals(path string) Matcher {
	return func(r *Request) bool { return r.Path == path }
}

// PathPrefix matches requests whose decoded Path starts with prefix.
func PathPrefix(prefix string) Matcher {
	return func(r *Request) bool {
		return len(r.Path) >= len(prefix) && r.Path[:len(prefix)] == prefix
	}
}

// MethodIs combines with another Matcher via AllOf to additionally
// require a specific HTTP method.
func MethodIs(method string) Matcher {
	return func(r *Request) bool { return r.Method == method }
}

// AllOf matches only when every given Matcher matches.
func AllOf(matchers ...Matcher) Matcher {
	return func(r *Request) bool {
		for _, m := range matchers {
			if !m(r) {
				return false
			}
		}
		return true
	}
}

// AnyOf matches when at least one given Matcher matches, for an endpoint
// reachable under several routes.
func AnyOf(matchers ...Matcher) Matcher {
	return func(r *Request) bool {
		for _, m := range matchers {
			if m(r) {
				return true
			}
		}
		return false
	}
}

// Entry is one registered endpoint: a priority, a route predicate, and a
// handler in one of the four supported signatures.
type Entry struct {
	Priority int
	Match    Matcher
	Name     string

	kind    handlerKind
	reqOut  RequestOutputFunc
	reqOnly RequestOnlyFunc
	outOnly OutputOnlyFunc
	ws      WebSocketFunc

	order int // registration sequence, used to break priority ties
}

// Registry holds every registered Entry, kept sorted by descending
// priority with ties broken by registration order (stable), matching
// the endpoint dispatch chain's ordering contract.
type Registry struct {
	entries []*Entry
	seq     int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// UnsupportedHandlerError is returned by Register when handler is not
// one of RequestOutputFunc, RequestOnlyFunc, OutputOnlyFunc, or
// WebSocketFunc (or a plain func matching one of those signatures).
type UnsupportedHandlerError struct{}

func (UnsupportedHandlerError) Error() string {
	return "worker: handler must be func(*Request,*Output), func(*Request), func(*Output), or func(*Request,*Session)"
}

// Register adds an endpoint at priority, guarded by match, wrapping
// handler according to its concrete signature. Higher priority runs
// first; among equal priorities, registration order wins.
func (reg *Registry) Register(priority int, match Matcher, name string, handler any) error {
	e := &Entry{Priority: priority, Match: match, Name: name, order: reg.seq}
	reg.seq++

	switch h := handler.(type) {
	case func(*Request, *Output):
		e.kind, e.reqOut = kindRequestOutput, h
	case RequestOutputFunc:
		e.kind, e.reqOut = kindRequestOutput, h
	case func(*Request):
		e.kind, e.reqOnly = kindRequestOnly, h
	case RequestOnlyFunc:
		e.kind, e.reqOnly = kindRequestOnly, h
	case func(*Output):
		e.kind, e.outOnly = kindOutputOnly, h
	case OutputOnlyFunc:
		e.kind, e.outOnly = kindOutputOnly, h
	case func(*Request, *Session):
		e.kind, e.ws = kindWebSocket, h
	case WebSocketFunc:
		e.kind, e.ws = kindWebSocket, h
	default:
		return UnsupportedHandlerError{}
	}

	reg.entries = append(reg.entries, e)
	sort.SliceStable(reg.entries, func(i, j int) bool {
		if reg.entries[i].Priority != reg.entries[j].Priority {
			return reg.entries[i].Priority > reg.entries[j].Priority
		}
		return reg.entries[i].order < reg.entries[j].order
	})
	return nil
}

// Matching returns every entry whose Match accepts req, in dispatch
// order (priority descending, registration order ascending on ties).
func (reg *Registry) Matching(req *Request) []*Entry {
	out := make([]*Entry, 0, len(reg.entries))
	for _, e := range reg.entries {
		if e.Match == nil || e.Match(req) {
			out = append(out, e)
		}
	}
	return out
}

// IsWebSocket reports whether e expects an upgraded connection.
func (e *Entry) IsWebSocket() bool { return e.kind == kindWebSocket }

package worker

import "github.com/momentics/serverino/wire"

// Output accumulates a response across the dispatch chain (§4.3): later
// endpoints in a fallthrough chain can see and further mutate what an
// earlier one wrote, which is why it is a single mutable value threaded
// through every handler invocation rather than a value returned once.
type Output struct {
	Status int
	Header *OutputHeader
	Body   []byte

	// Deleted marks that an earlier endpoint in the chain decided no
	// response should reach the client at all (the connection is closed
	// without writing anything) — distinct from Mute, which still emits
	// headers and a content-length but withholds the body bytes (HEAD
	// semantics, SPEC_FULL.md §12).
	Deleted bool
	Mute    bool

	// Continue lets an endpoint opt into fallthrough: when true after a
	// handler returns, Dispatch runs the next matching, lower-priority
	// Entry against the same request instead of stopping. Cleared before
	// each entry runs, so an endpoint earlier in the chain cannot force
	// every later one to also run.
	Continue bool

	touched bool
	cookies []wire.Cookie
}

// OutputHeader wraps wire.Header so that Set and Add mark the owning
// Output as touched, the same as Write, SetCookie, and SetStatus: a
// header-only mutation counts as "Output was mutated" for the dispatch
// chain's stop decision (§4.3 step 4(c)) just as much as a body write.
type OutputHeader struct {
	*wire.Header
	out *Output
}

func (h *OutputHeader) Set(name, value string) {
	h.out.touched = true
	h.Header.Set(name, value)
}

func (h *OutputHeader) Add(name, value string) {
	h.out.touched = true
	h.Header.Add(name, value)
}

// NewOutput returns a zero-value Output pre-seeded with a 200 status and
// an empty header map, matching what the first endpoint in a chain sees.
func NewOutput() *Output {
	o := &Output{Status: 200}
	o.Header = &OutputHeader{Header: wire.NewHeader(), out: o}
	return o
}

// Reset returns o to the state NewOutput would produce, so a worker can
// reuse one Output allocation across requests. Idempotent: calling Reset
// twice in a row leaves the same zero-valued result both times.
func (o *Output) Reset() {
	o.Status = 200
	o.Header = &OutputHeader{Header: wire.NewHeader(), out: o}
	o.Body = nil
	o.Deleted = false
	o.Mute = false
	o.Continue = false
	o.touched = false
	o.cookies = nil
}

// SetStatus sets the response status explicitly. Unlike assigning Status
// directly — which framework code still does when rendering an error
// response after a chain has already finished (finishHTTP's 404/500) —
// SetStatus is what an endpoint should call, since it also marks Output
// as touched (§4.3 step 4(c)).
func (o *Output) SetStatus(status int) {
	o.touched = true
	o.Status = status
}

// Touched reports whether anything in the current chain has mutated
// Output: a body Write, SetCookie, header Set/Add, or SetStatus. Dispatch
// consults this to decide whether the chain may stop after an endpoint
// runs (§4.3 step 4(c), TESTABLE PROPERTY 4), and finishHTTP consults it
// to decide whether to emit 404 (§4.3 step 5).
func (o *Output) Touched() bool {
	return o.touched
}

// SetCookie appends a Set-Cookie line, keeping insertion order and never
// folding multiple cookies into one header the way Add does for
// ordinary headers (§4.1).
func (o *Output) SetCookie(line string) {
	o.touched = true
	o.cookies = append(o.cookies, wire.Cookie{Line: line})
}

// Cookies returns every cookie queued so far, in insertion order.
func (o *Output) Cookies() []wire.Cookie {
	return o.cookies
}

// Write appends to the body buffer, mirroring io.Writer so handlers can
// use fmt.Fprintf(out, ...) directly.
func (o *Output) Write(p []byte) (int, error) {
	o.touched = true
	o.Body = append(o.Body, p...)
	return len(p), nil
}

// ToResponseSpec converts the accumulated Output into a wire.ResponseSpec
// ready for serialization. contentLength reflects the real body length
// even when Mute suppresses the bytes themselves, per SPEC_FULL.md §12's
// HEAD-semantics supplement.
func (o *Output) ToResponseSpec(version string, keepAlive bool) wire.ResponseSpec {
	return wire.ResponseSpec{
		Version:      version,
		Status:       o.Status,
		Header:       o.Header.Header,
		Cookies:      o.cookies,
		Body:         o.Body,
		SuppressBody: o.Mute,
		KeepAlive:    keepAlive,
	}
}

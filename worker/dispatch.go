package worker

import "fmt"

// DispatchResult reports how a chain run ended, so the worker runtime
// knows what to send back and whether it must transition to Stopping.
type DispatchResult struct {
	Invoked    bool // at least one Entry matched and ran
	Faulted    bool // a handler panicked and was caught
	FaultValue any
	Upgraded   bool    // a WebSocketFunc took over the connection
	Session    *Session
}

// Dispatch runs every Entry matching req in priority order. The chain
// keeps running past a matching endpoint that left Output untouched —
// a pure inspector or pre-processor doesn't need to set Continue just to
// let the next, lower-priority entry also see the request. Once an
// endpoint does mutate Output (a body Write, SetCookie, header mutation,
// or SetStatus), the chain stops unless that endpoint also set
// out.Continue to opt into fallthrough (§4.3 step 4(c), TESTABLE
// PROPERTY 4). A panicking handler is caught and reported in the result
// rather than propagated, so one bad endpoint can't take down the
// worker process mid-request (§4.3 step 8).
func Dispatch(reg *Registry, req *Request, out *Output, session func() *Session) DispatchResult {
	result := DispatchResult{}

	for _, e := range reg.Matching(req) {
		result.Invoked = true

		faulted, faultVal := runEntry(e, req, out, session, &result)
		if faulted {
			result.Faulted = true
			result.FaultValue = faultVal
			out.Reset()
			out.Status = 500
			return result
		}
		if result.Upgraded {
			return result
		}
		if out.Touched() && !out.Continue {
			break
		}
		out.Continue = false
	}

	return result
}

func runEntry(e *Entry, req *Request, out *Output, session func() *Session, result *DispatchResult) (faulted bool, faultVal any) {
	defer func() {
		if r := recover(); r != nil {
			faulted = true
			faultVal = r
		}
	}()

	switch e.kind {
	case kindRequestOutput:
		e.reqOut(req, out)
	case kindRequestOnly:
		e.reqOnly(req)
	case kindOutputOnly:
		e.outOnly(out)
	case kindWebSocket:
		sess := session()
		if sess == nil {
			panic(fmt.Sprintf("worker: endpoint %q expects an upgraded connection but none was handed off", e.Name))
		}
		result.Upgraded = true
		result.Session = sess
		e.ws(req, sess)
	}
	return false, nil
}

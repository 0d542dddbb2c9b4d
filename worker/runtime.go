package worker

import (
	"fmt"
	"net"
	"os"

	"github.com/momentics/serverino/ctrlchan"
	"github.com/momentics/serverino/wire"
)

// FaultHandler is invoked when a dispatched endpoint panics, in place of
// the built-in 500 fallback, so an application can log or render a
// custom error page before the worker reports Stopping (§4.3 step 8).
type FaultHandler func(req *Request, out *Output, faultValue any)

// Runtime is the worker process's main loop: it turns ctrlchan frames
// into Request/Output/Session values, runs them through a Registry, and
// writes the result back. One Runtime serves exactly one control
// channel for the lifetime of the worker process.
type Runtime struct {
	Registry        *Registry
	FormDecoder     FormDecoder
	Fault           FaultHandler
	Logger          func(line string)
	Limits          wire.Limits
	MaxFramePayload int

	ctrl    *ctrlchan.Channel
	faulted bool
}

// NewRuntime builds a Runtime with sane defaults; Registry must be
// populated by the caller before Run is invoked.
func NewRuntime(reg *Registry) *Runtime {
	return &Runtime{
		Registry:    reg,
		FormDecoder: NewDefaultFormDecoder(),
		Limits:      wire.DefaultLimits(),
	}
}

// Run announces readiness and then services FrameRequest frames until
// the control channel closes or a FrameShutdown arrives. It returns nil
// on a clean shutdown and a non-nil error if the channel died
// unexpectedly.
func (rt *Runtime) Run(ctrl *ctrlchan.Channel) error {
	rt.ctrl = ctrl
	if err := ctrl.Send(ctrlchan.Frame{Type: ctrlchan.FrameReady}); err != nil {
		return err
	}

	for {
		f, err := ctrl.Recv()
		if err != nil {
			return err
		}
		switch f.Type {
		case ctrlchan.FrameRequest:
			if err := rt.handleRequest(f.Payload); err != nil {
				return err
			}
			if rt.faulted {
				return nil
			}
		case ctrlchan.FrameShutdown:
			return nil
		default:
			continue
		}
	}
}

func (rt *Runtime) handleRequest(payload []byte) error {
	reqPayload, err := ctrlchan.DecodeRequestPayload(payload)
	if err != nil {
		return err
	}

	result := wire.TryParseRequest(reqPayload.RawBytes, rt.Limits)
	if result.Status != wire.StatusComplete {
		return rt.respond(ctrlchan.ResponsePayload{
			RawBytes: renderErrorResponse(result),
		})
	}

	body := bodyOf(result, reqPayload.RawBytes)
	req := NewRequest(result.Meta, body, reqPayload.RemoteAddr, reqPayload.TLS, rt.FormDecoder)

	matching := rt.Registry.Matching(req)
	wantsUpgrade := wire.IsUpgradeRequest(req.Header)

	var wsEntryPresent bool
	for _, e := range matching {
		if e.IsWebSocket() {
			wsEntryPresent = true
			break
		}
	}

	if wantsUpgrade && wsEntryPresent {
		return rt.handleUpgrade(req)
	}

	out := NewOutput()
	dr := Dispatch(rt.Registry, req, out, func() *Session { return nil })
	return rt.finishHTTP(req, out, dr, result.Meta.KeepAlive)
}

func (rt *Runtime) finishHTTP(req *Request, out *Output, dr DispatchResult, keepAlive bool) error {
	if out.Deleted && !dr.Faulted {
		return rt.respond(ctrlchan.ResponsePayload{})
	}
	if dr.Faulted {
		rt.logf("endpoint fault on %s %s: %v", req.Method, req.Path, dr.FaultValue)
		if rt.Fault != nil {
			out.Reset()
			rt.Fault(req, out, dr.FaultValue)
		} else {
			out.Reset()
			out.Status = 500
			out.Body = wire.ShortErrorBody(500)
		}
	} else if !out.Touched() {
		out.Status = 404
		out.Body = wire.ShortErrorBody(404)
	}

	spec := out.ToResponseSpec(req.Version, keepAlive && !dr.Faulted)
	raw := wire.SerializeResponse(nil, spec)

	if err := rt.respond(ctrlchan.ResponsePayload{RawBytes: raw, KeepAlive: spec.KeepAlive}); err != nil {
		return err
	}
	if dr.Faulted {
		rt.faulted = true
		return rt.ctrl.Send(ctrlchan.Frame{Type: ctrlchan.FrameShutdown})
	}
	return nil
}

// handleUpgrade validates the handshake, tells the daemon to relay a 101
// response and hand off the client fd, waits for that fd, then runs the
// matched WebSocketFunc synchronously until the session ends.
func (rt *Runtime) handleUpgrade(req *Request) error {
	// A malformed or absent required header (bad Sec-WebSocket-Version,
	// missing Sec-WebSocket-Key) is a 400: the request itself is invalid.
	// 403 is reserved for an application-layer accept-predicate rejecting
	// an otherwise well-formed handshake (§4.2), which this runtime does
	// not implement.
	accept, err := wire.ValidateHandshake(req.Header)
	if err != nil {
		out := NewOutput()
		out.Status = 400
		out.Body = wire.ShortErrorBody(400)
		spec := out.ToResponseSpec(req.Version, false)
		return rt.respond(ctrlchan.ResponsePayload{RawBytes: wire.SerializeResponse(nil, spec)})
	}

	hdr := wire.NewHeader()
	hdr.Set("upgrade", "websocket")
	hdr.Set("connection", "Upgrade")
	hdr.Set("sec-websocket-accept", accept)
	spec := wire.ResponseSpec{Version: req.Version, Status: 101, Header: hdr, SuppressBody: true}
	raw := wire.SerializeResponse(nil, spec)

	if err := rt.respond(ctrlchan.ResponsePayload{RawBytes: raw, DidUpgrade: true}); err != nil {
		return err
	}

	f, err := rt.ctrl.Recv()
	if err != nil {
		return err
	}
	if f.Type != ctrlchan.FrameUpgradeHandoff {
		return nil
	}

	fd, err := ctrlchan.RecvFD(rt.ctrl.Conn())
	if err != nil {
		return err
	}
	file := os.NewFile(uintptr(fd), "ws-client")
	conn, err := net.FileConn(file)
	file.Close()
	if err != nil {
		return err
	}

	session := NewSession(conn, rt.MaxFramePayload)
	out := NewOutput()
	dr := Dispatch(rt.Registry, req, out, func() *Session { return session })
	if dr.Faulted {
		session.Close(wire.CloseInternalError, "internal error")
	}
	conn.Close()

	return rt.ctrl.Send(ctrlchan.Frame{Type: ctrlchan.FrameReady})
}

func (rt *Runtime) respond(p ctrlchan.ResponsePayload) error {
	return rt.ctrl.Send(ctrlchan.Frame{Type: ctrlchan.FrameResponse, Payload: ctrlchan.EncodeResponsePayload(p)})
}

// logf renders a line through rt.Logger if set and always forwards it to
// the daemon as a FrameLog frame (§4.7), so operator-facing log
// collection stays on the daemon side even though the endpoint code that
// triggered it ran in a worker process.
func (rt *Runtime) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if rt.Logger != nil {
		rt.Logger(line)
	}
	if rt.ctrl != nil {
		rt.ctrl.Send(ctrlchan.Frame{Type: ctrlchan.FrameLog, Payload: []byte(line)})
	}
}

func bodyOf(result wire.ParseResult, raw []byte) []byte {
	if result.Meta.DecodedBody != nil {
		return result.Meta.DecodedBody
	}
	start := result.Meta.BodyOffset
	end := start + result.Meta.BodyLen
	if end > len(raw) {
		end = len(raw)
	}
	return raw[start:end]
}

func renderErrorResponse(result wire.ParseResult) []byte {
	status := 400
	if result.Err != nil {
		switch result.Err.Kind {
		case wire.KindTooLarge:
			status = 413
		case wire.KindUnsupportedVersion:
			status = 505
		}
	}
	spec := wire.ResponseSpec{Version: "HTTP/1.1", Status: status, Header: wire.NewHeader(), Body: wire.ShortErrorBody(status)}
	return wire.SerializeResponse(nil, spec)
}

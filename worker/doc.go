// Package worker implements the worker-process half of serverino: the
// per-request Request/Output value types, the endpoint dispatch chain,
// and the worker main loop that turns ctrlchan frames into application
// calls and back.
//
// The endpoint signature polymorphism and small-interface style are
// grounded in the teacher's api package (api/handler.go's single-method
// Handler, api/websocket.go's WebSocketConn) — generalized from one
// fixed Handle(data any) shape to four concrete function signatures an
// application can register against, matched by type switch rather than
// reflection.
package worker

// Package ctrlchan implements the daemon↔worker control channel
// protocol: length-prefixed command frames exchanged over a dedicated
// per-worker socket pair (spec.md §4.7), plus descriptor handoff for
// WebSocket upgrade (§5, §9 "transfer_socket(peer, fd) → ()").
//
// The frame codec here is the same "flat buffer in, structured value out"
// discipline the wire package uses for HTTP/WebSocket — adapted from the
// teacher's protocol/frame_codec.go binary.BigEndian length-prefixing,
// generalized from a single frame kind to the seven control-channel
// frame types.
package ctrlchan

package wire

import "strings"

// Header is an insertion-ordered, case-insensitive header map. Lookups
// fold case; emission preserves whatever case the first occurrence of a
// name arrived in, per the data model's "preserve original case on emit"
// invariant.
type Header struct {
	names  []string // canonical (first-seen-case) name, in insertion order
	lookup map[string]int
	values []string
}

// NewHeader returns an empty header map.
func NewHeader() *Header {
	return &Header{lookup: make(map[string]int)}
}

// Add appends a header, folding duplicates per RFC 7230 (comma-joined)
// except for Set-Cookie, which is kept as independent entries so
// each cookie can still be emitted on its own line.
func (h *Header) Add(name, value string) {
	key := strings.ToLower(name)
	if key == "set-cookie" {
		h.names = append(h.names, name)
		h.values = append(h.values, value)
		return
	}
	if idx, ok := h.lookup[key]; ok {
		h.values[idx] = h.values[idx] + ", " + value
		return
	}
	h.lookup[key] = len(h.names)
	h.names = append(h.names, name)
	h.values = append(h.values, value)
}

// Set replaces all existing values for name with a single value.
func (h *Header) Set(name, value string) {
	key := strings.ToLower(name)
	if idx, ok := h.lookup[key]; ok {
		h.names[idx] = name
		h.values[idx] = value
		return
	}
	h.lookup[key] = len(h.names)
	h.names = append(h.names, name)
	h.values = append(h.values, value)
}

// Get returns the first value stored for name, case-insensitively.
// Set-Cookie entries added with Add are not indexed, so Get does not see
// them; use Values for those.
func (h *Header) Get(name string) (string, bool) {
	key := strings.ToLower(name)
	if idx, ok := h.lookup[key]; ok {
		return h.values[idx], true
	}
	return "", false
}

// Values returns every value stored under name, in insertion order — used
// for Set-Cookie, the one header kept as repeated entries.
func (h *Header) Values(name string) []string {
	key := strings.ToLower(name)
	var out []string
	for i, n := range h.names {
		if strings.ToLower(n) == key {
			out = append(out, h.values[i])
		}
	}
	return out
}

// Len returns the number of stored entries (duplicates folded, except Set-Cookie).
func (h *Header) Len() int { return len(h.names) }

// Range calls fn for every header in insertion order.
func (h *Header) Range(fn func(name, value string)) {
	for i, n := range h.names {
		fn(n, h.values[i])
	}
}

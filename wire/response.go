package wire

import (
	"bytes"
	"strconv"
)

// Cookie is a single Set-Cookie value, already formatted by the caller
// (name=value; Attr=..; ...) — wire only knows how to place it on the wire
// as its own header line, never how to build cookie semantics.
type Cookie struct {
	Line string // fully-formed "name=value; Path=/; ..." cookie-string
}

// ResponseSpec is everything SerializeResponse needs to turn a worker's
// Output into bytes. It is a plain data carrier so this package stays free
// of a dependency on the worker package's Output type.
type ResponseSpec struct {
	Version     string // request's negotiated HTTP version, echoed back
	Status      int
	Header      *Header // user-set headers; connection/content-length/content-type are computed, not read from here
	Cookies     []Cookie
	Body        []byte
	SuppressBody bool // true for HEAD responses and explicitly muted Output
	KeepAlive   bool
}

// SerializeResponse appends the wire bytes for spec to dst and returns the
// extended slice. Status line, connection, content-length, content-type
// (default text/html;charset=utf-8 when body is non-empty and the
// endpoint set none), user headers, and Set-Cookie lines (one per
// cookie, insertion order) are emitted in that order, per §4.3 item 6.
func SerializeResponse(dst []byte, spec ResponseSpec) []byte {
	buf := bytes.NewBuffer(dst)

	buf.WriteString(spec.Version)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(spec.Status))
	buf.WriteByte(' ')
	buf.WriteString(ReasonPhrase(spec.Status))
	buf.WriteString("\r\n")

	if spec.KeepAlive {
		buf.WriteString("connection: keep-alive\r\n")
	} else {
		buf.WriteString("connection: close\r\n")
	}

	bodyLen := len(spec.Body)
	buf.WriteString("content-length: ")
	buf.WriteString(strconv.Itoa(bodyLen))
	buf.WriteString("\r\n")

	hasContentType := false
	if spec.Header != nil {
		if _, ok := spec.Header.Get("content-type"); ok {
			hasContentType = true
		}
	}
	if !hasContentType && bodyLen > 0 {
		buf.WriteString("content-type: text/html;charset=utf-8\r\n")
	}

	if spec.Header != nil {
		spec.Header.Range(func(name, value string) {
			low := toLower(name)
			if low == "connection" || low == "content-length" {
				return
			}
			buf.WriteString(name)
			buf.WriteString(": ")
			buf.WriteString(value)
			buf.WriteString("\r\n")
		})
	}

	for _, c := range spec.Cookies {
		buf.WriteString("Set-Cookie: ")
		buf.WriteString(c.Line)
		buf.WriteString("\r\n")
	}

	buf.WriteString("\r\n")
	if !spec.SuppressBody {
		buf.Write(spec.Body)
	}

	return buf.Bytes()
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// ShortErrorBody returns the short text/plain body used for error statuses
// that no endpoint supplied a body for, per §7: "all error statuses carry
// a short text/plain body unless the endpoint chain supplied one."
func ShortErrorBody(status int) []byte {
	return []byte(strconv.Itoa(status) + " " + ReasonPhrase(status) + "\n")
}

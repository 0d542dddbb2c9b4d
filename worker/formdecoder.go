package worker

import (
	"bytes"
	"mime"
	"mime/multipart"
	"net/url"
)

// FormDecoder turns a request body into url.Values given its
// Content-Type. Parsing form encodings is an explicit out-of-scope
// external-collaborator boundary (SPEC_FULL.md §1): the framer only
// ever deals in raw bytes, and an application can swap in its own
// decoder (e.g. one backed by a stricter multipart limit) without
// touching the dispatch chain.
type FormDecoder interface {
	Decode(contentType string, body []byte) (url.Values, error)
}

// DefaultFormDecoder handles application/x-www-form-urlencoded and
// multipart/form-data using the standard library, matching the
// grounding rule that external-collaborator boundaries may stay on
// stdlib: no repo in the corpus has a form-parsing dependency to adopt
// instead.
type DefaultFormDecoder struct {
	MaxMemory int64 // multipart.Reader.ReadForm buffer cap; 0 means 32MiB default
}

// NewDefaultFormDecoder returns a decoder with the standard library's
// 32MiB multipart memory cap.
func NewDefaultFormDecoder() *DefaultFormDecoder {
	return &DefaultFormDecoder{MaxMemory: 32 << 20}
}

func (d *DefaultFormDecoder) Decode(contentType string, body []byte) (url.Values, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return url.Values{}, err
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		return url.ParseQuery(string(body))

	case "multipart/form-data":
		boundary, ok := params["boundary"]
		if !ok {
			return url.Values{}, err
		}
		mr := multipart.NewReader(bytes.NewReader(body), boundary)
		maxMemory := d.MaxMemory
		if maxMemory <= 0 {
			maxMemory = 32 << 20
		}
		form, err := mr.ReadForm(maxMemory)
		if err != nil {
			return url.Values{}, err
		}
		out := url.Values{}
		for k, v := range form.Value {
			out[k] = v
		}
		return out, nil

	default:
		return url.Values{}, nil
	}
}

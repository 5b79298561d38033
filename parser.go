// Package streamform implements a streaming multipart/form-data decoder:
// feed it chunks as they arrive off the wire, in any split, and it
// dispatches each part's body to a registered target while holding only
// a small constant amount of memory regardless of part size.
//
// Grounded on badu-http/mime's public surface (ReadForm/NextPart) for
// what a form-data frontend exposes to callers, reshaped from a pull
// model to streamform's push model (spec.md §4.4.1's redesign rationale)
// and on original_source/streaming_form_data/parser.py's StreamingFormDataParser
// for the split between boundary extraction (construction time) and
// byte-by-byte feeding (streaming time).
package streamform

import (
	"strings"

	"github.com/badu/streamform/headerparser"
	"github.com/badu/streamform/multipart"
	"github.com/badu/streamform/target"
)

// Parser decodes one multipart/form-data stream. It is not safe for
// concurrent use by multiple goroutines.
type Parser struct {
	core    *multipart.ParserCore
	binding *multipart.TargetBinding
	closed  bool
}

// New builds a Parser for a request carrying headers (a case-insensitive
// map of header name to value, per spec.md §6 — only Content-Type is
// consulted). strict selects strict mode: a part whose name has no
// registered target then fails the parse instead of being silently
// discarded (spec.md §4.3, §9 Open Question (b) — repeated names
// dispatch to the same target list, in registration order).
func New(headers map[string]string, strict bool) (*Parser, error) {
	contentType, ok := lookupContentType(headers)
	if !ok {
		return nil, ErrContentTypeMissing
	}

	h, err := headerparser.ParseLine([]byte("Content-Type: " + contentType))
	if err != nil {
		return nil, err
	}
	if !headerparser.IsMultipartFormData(h.Value) {
		return nil, ErrContentTypeNotMultipart
	}
	boundary := h.Get("boundary")
	if boundary == "" {
		return nil, ErrBoundaryMissing
	}
	if !validateBoundary(boundary) {
		return nil, ErrBoundaryInvalid
	}

	binding := multipart.NewTargetBinding(strict)
	core, err := multipart.NewParserCore([]byte(boundary), binding)
	if err != nil {
		return nil, err
	}
	return &Parser{core: core, binding: binding}, nil
}

// lookupContentType finds the Content-Type entry in headers by a
// case-insensitive key comparison (spec.md §6: "Input: request headers.
// Map from case-insensitive string to string"), reporting whether one
// was present at all — New needs that distinction to return
// ErrContentTypeMissing rather than collapsing a missing header into
// ErrContentTypeNotMultipart.
func lookupContentType(headers map[string]string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, "Content-Type") {
			return v, true
		}
	}
	return "", false
}

// Register binds name (the Content-Disposition "name" parameter of a
// part) to t. Calling Register after the first FeedChunk call returns
// multipart.KindAlreadyStarted wrapped in a *multipart.Error.
func (p *Parser) Register(name string, t target.Target) error {
	return p.binding.Register(name, t)
}

// FeedChunk advances the parse by buf, which may be any non-negative
// length, split at any byte offset, including across header lines,
// boundary delimiters, or part bodies. Once FeedChunk returns an error,
// every later FeedChunk call, and the first Close call, returns that
// same error.
func (p *Parser) FeedChunk(buf []byte) error {
	return p.core.Feed(buf)
}

// Close signals end of stream. It is best-effort: if the stream ended
// mid-part (the closing boundary was never seen), any target left open
// still gets a Finish call before the truncation error is returned
// (Open Question (c) — Go has no destructors, so finish-on-drop is
// realized as this explicit call instead).
func (p *Parser) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.core.Close()
}

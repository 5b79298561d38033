// Package fixture builds raw multipart/form-data byte payloads for
// tests, adapted from badu-http/mime's MultipartWriter (CreatePart,
// CreateFormFile, WriteField, Close) — which streams part bodies to an
// io.Writer — into a buffered builder that hands back the whole payload
// as a []byte, so tests can split it at arbitrary offsets to exercise
// chunk-invariance.
package fixture

import (
	"fmt"
	"strings"

	"github.com/badu/streamform/hdr"
)

// Builder accumulates multipart/form-data parts and renders them with a
// fixed boundary.
type Builder struct {
	boundary string
	buf      strings.Builder
	wrote    bool
}

// New returns a Builder using boundary as the separator. Callers pass a
// fixed value (rather than a random one, the way NewWriter in the
// teacher package does) so tests can assert on exact byte offsets.
func New(boundary string) *Builder {
	return &Builder{boundary: boundary}
}

// Boundary returns the separator passed to New.
func (b *Builder) Boundary() string { return b.boundary }

// AddField appends a plain form field.
func (b *Builder) AddField(name, value string) *Builder {
	h := make(hdr.Header)
	h.Set(hdr.ContentDisposition, fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(name)))
	return b.addPart(h, value)
}

// AddFile appends a file part with the given field name, filename and
// Content-Type.
func (b *Builder) AddFile(name, filename, contentType string, data []byte) *Builder {
	h := make(hdr.Header)
	h.Set(hdr.ContentDisposition,
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(name), escapeQuotes(filename)))
	if contentType != "" {
		h.Set(hdr.ContentType, contentType)
	}
	return b.addPart(h, string(data))
}

// AddRawPart appends a part with an arbitrary pre-formatted header
// block, for tests exercising malformed or edge-case headers directly.
func (b *Builder) AddRawPart(rawHeaderLines, body string) *Builder {
	b.writeBoundaryLine()
	b.buf.WriteString(rawHeaderLines)
	b.buf.WriteString("\r\n")
	b.buf.WriteString(body)
	return b
}

func (b *Builder) addPart(h hdr.Header, body string) *Builder {
	b.writeBoundaryLine()
	for k, vs := range h {
		for _, v := range vs {
			b.buf.WriteString(k)
			b.buf.WriteString(": ")
			b.buf.WriteString(v)
			b.buf.WriteString("\r\n")
		}
	}
	b.buf.WriteString("\r\n")
	b.buf.WriteString(body)
	return b
}

func (b *Builder) writeBoundaryLine() {
	if b.wrote {
		b.buf.WriteString("\r\n--")
		b.buf.WriteString(b.boundary)
		b.buf.WriteString("\r\n")
	} else {
		b.buf.WriteString("--")
		b.buf.WriteString(b.boundary)
		b.buf.WriteString("\r\n")
	}
	b.wrote = true
}

// Bytes finalizes the payload with the closing boundary and returns it.
// The Builder may still be reused afterwards to build a fresh payload
// via Reset.
func (b *Builder) Bytes() []byte {
	out := b.buf.String() + "\r\n--" + b.boundary + "--\r\n"
	return []byte(out)
}

// Reset clears the builder, keeping its boundary, for reuse.
func (b *Builder) Reset() *Builder {
	b.buf.Reset()
	b.wrote = false
	return b
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

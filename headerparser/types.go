// Package headerparser parses the two header lines a multipart/form-data
// part ever carries — Content-Disposition and Content-Type — plus their
// "; key=value" parameter lists.
//
// This is deliberately not built on encoding/mime's ParseMediaType or
// net/textproto: the grammar subset needed here is small (no RFC 2231
// extended parameters, no header folding — spec §6 says folded headers
// are not supported), and a hand-rolled scanner keeps allocation bounded
// the way the core parser's body loop does. The scanning style is
// grounded on badu-http/mime/utils.go's skipLWSPChar/matchAfterPrefix and
// badu-http/hdr's trim/isASCIISpace; case-insensitive comparisons use
// github.com/intuitivelabs/bytescase, the same dependency
// intuitivelabs-httpsp uses to match header and token names byte-wise
// without allocating a lowercased copy.
package headerparser

import "errors"

// FieldContentDisposition and FieldContentType are the only two header
// names the multipart core inspects; ParseLine reports other field names
// too (for completeness) but the caller is expected to ignore them.
const (
	FieldContentDisposition = "content-disposition"
	FieldContentType        = "content-type"
)

// ErrMalformedHeader is returned when a header line has no ':' separator,
// or a quoted parameter value is left unterminated.
var ErrMalformedHeader = errors.New("headerparser: malformed header line")

// ErrMalformedParam is returned when a "; key=value" segment cannot be
// parsed as a token or quoted-string parameter.
var ErrMalformedParam = errors.New("headerparser: malformed parameter")

// Header is the parsed form of one unfolded header line.
type Header struct {
	// FieldName is the lowercased header name, e.g. "content-disposition".
	FieldName string
	// Value is the primary value before the first ';', with surrounding
	// whitespace trimmed. Case is preserved.
	Value string
	// Params holds "; key=value" pairs keyed by lowercased parameter
	// name. Quoted values have been unescaped (\\ and \" -> \ and ").
	Params map[string]string
}

// Get returns the named parameter (lowercased lookup), or "" if absent.
func (h Header) Get(name string) string {
	return h.Params[lowerASCII([]byte(name))]
}

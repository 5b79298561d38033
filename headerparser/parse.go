package headerparser

import (
	"strings"

	"github.com/intuitivelabs/bytescase"
)

// ParseLine parses a single header line, with its trailing CRLF already
// stripped by the caller. It returns ErrMalformedHeader if the line has
// no ':' separator or a quoted parameter value is left unterminated, and
// ErrMalformedParam if a "; key=value" segment has no '=' or is followed
// by anything other than ';'.
func ParseLine(line []byte) (Header, error) {
	colon := indexByte(line, ':')
	if colon < 0 {
		return Header{}, ErrMalformedHeader
	}

	name := lowerASCII(trimOWS(line[:colon]))
	rest := trimOWS(line[colon+1:])

	value, params, err := parseValueAndParams(rest)
	if err != nil {
		return Header{}, err
	}

	return Header{
		FieldName: name,
		Value:     value,
		Params:    params,
	}, nil
}

// IsFormData reports whether v is the primary Content-Disposition value
// "form-data", compared case-insensitively via bytescase.
func IsFormData(v string) bool {
	return bytescase.CmpEq([]byte(v), []byte("form-data"))
}

// IsMultipartFormData reports whether v is the primary Content-Type
// value "multipart/form-data", compared case-insensitively.
func IsMultipartFormData(v string) bool {
	return bytescase.CmpEq([]byte(v), []byte("multipart/form-data"))
}

func parseValueAndParams(rest []byte) (string, map[string]string, error) {
	semi := indexByte(rest, ';')
	if semi < 0 {
		return string(trimOWS(rest)), map[string]string{}, nil
	}

	value := string(trimOWS(rest[:semi]))
	params := map[string]string{}

	remaining := rest[semi+1:]
	for len(remaining) > 0 {
		remaining = trimOWS(remaining)
		if len(remaining) == 0 {
			break
		}

		eq := indexByte(remaining, '=')
		if eq < 0 {
			return "", nil, ErrMalformedParam
		}
		key := lowerASCII(trimOWS(remaining[:eq]))
		remaining = trimOWS(remaining[eq+1:])

		var val string
		var err error
		val, remaining, err = consumeParamValue(remaining)
		if err != nil {
			return "", nil, err
		}
		if key != "" {
			params[key] = val
		}

		remaining = trimOWS(remaining)
		if len(remaining) == 0 {
			break
		}
		if remaining[0] != ';' {
			return "", nil, ErrMalformedParam
		}
		remaining = remaining[1:]
	}

	return value, params, nil
}

// consumeParamValue reads either a double-quoted string (with \\ and \"
// escapes) or a bare token from the start of v, returning the decoded
// value and the unconsumed remainder.
func consumeParamValue(v []byte) (string, []byte, error) {
	if len(v) == 0 {
		return "", v, nil
	}
	if v[0] != '"' {
		end := indexByte(v, ';')
		if end < 0 {
			return string(trimOWS(v)), nil, nil
		}
		return string(trimOWS(v[:end])), v[end:], nil
	}

	var b strings.Builder
	i := 1
	for i < len(v) {
		c := v[i]
		if c == '\\' && i+1 < len(v) {
			b.WriteByte(v[i+1])
			i += 2
			continue
		}
		if c == '"' {
			return b.String(), v[i+1:], nil
		}
		b.WriteByte(c)
		i++
	}
	return "", nil, ErrMalformedHeader
}

func indexByte(b []byte, c byte) int {
	for i := 0; i < len(b); i++ {
		if b[i] == c {
			return i
		}
	}
	return -1
}

func trimOWS(b []byte) []byte {
	i := 0
	for i < len(b) && isOWS(b[i]) {
		i++
	}
	n := len(b)
	for n > i && isOWS(b[n-1]) {
		n--
	}
	return b[i:n]
}

func isOWS(b byte) bool {
	return b == ' ' || b == '\t'
}

func lowerASCII(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = bytescase.ByteToLower(c)
	}
	return string(out)
}

/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package hdr

const (
	toLower = 'a' - 'A'

	// Header names interned by canonicalMIMEHeaderKey; internal/fixture
	// uses ContentDisposition and ContentType to build part headers.
	ContentDisposition      = "Content-Disposition"
	ContentType             = "Content-Type"
	ContentTransferEncoding = "Content-Transfer-Encoding"
)

var (
	// isTokenTable is a copy of net/http/lex.go's isTokenTable.
	// See https://httpwg.github.io/specs/rfc7230.html#rule.token.separators
	isTokenTable = [127]bool{
		'0': true, '1': true, '2': true, '3': true, '4': true, '5': true, '6': true, '7': true,
		'8': true, '9': true,

		'a': true, 'b': true, 'c': true, 'd': true, 'e': true, 'f': true, 'g': true, 'h': true,
		'i': true, 'j': true, 'k': true, 'l': true, 'm': true, 'n': true, 'o': true, 'p': true,
		'q': true, 'r': true, 's': true, 't': true, 'u': true, 'v': true, 'w': true, 'x': true,
		'y': true, 'z': true,

		'A': true, 'B': true, 'C': true, 'D': true, 'E': true, 'F': true, 'G': true, 'H': true,
		'I': true, 'J': true, 'K': true, 'L': true, 'M': true, 'N': true, 'O': true, 'P': true,
		'Q': true, 'R': true, 'S': true, 'T': true, 'U': true, 'V': true, 'W': true, 'X': true,
		'Y': true, 'Z': true,

		'!':  true,
		'#':  true,
		'$':  true,
		'%':  true,
		'&':  true,
		'\'': true,
		'*':  true,
		'+':  true,
		'-':  true,
		'.':  true,
		'^':  true,
		'_':  true,
		'`':  true,
		'|':  true,
		'~':  true,
	}

	// commonHeader interns the header names this module actually cares about.
	commonHeader = map[string]string{
		ContentDisposition:      ContentDisposition,
		ContentType:             ContentType,
		ContentTransferEncoding: ContentTransferEncoding,
	}
)

// Header represents request headers as case-sensitive-keyed multi-value
// pairs, the same shape as net/http.Header, so callers can hand in an
// *http.Request's Header directly via a type conversion.
type Header map[string][]string

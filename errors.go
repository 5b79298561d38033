package streamform

import "errors"

// These are returned by New, before any streaming begins — construction
// errors, as opposed to the richer *multipart.Error the parser can return
// once bytes are being fed (spec.md §7 distinguishes the two: boundary
// extraction happens once, up front, from the Content-Type header).
var (
	ErrContentTypeMissing      = errors.New("streamform: no Content-Type header present")
	ErrContentTypeNotMultipart = errors.New("streamform: Content-Type is not multipart/form-data")
	ErrBoundaryMissing         = errors.New("streamform: Content-Type has no boundary parameter")
	ErrBoundaryInvalid         = errors.New("streamform: boundary parameter is not a valid RFC 2046 boundary")
)

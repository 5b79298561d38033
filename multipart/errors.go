package multipart

import "fmt"

// ErrorKind classifies the parser's error taxonomy (spec.md §7 — kinds,
// not concrete Go types).
type ErrorKind int

const (
	// KindBadBoundary: the stream's first bytes are not --<boundary>CRLF
	// (modulo leading-CRLF tolerance), a mismatch was found while
	// matching the leading boundary token, a boundary found mid-body is
	// followed by neither CRLF nor "--", or the stream ended (Close)
	// before the closing boundary.
	KindBadBoundary ErrorKind = iota
	// KindMalformedHeaders: a header line exceeded maxHeaderLineBytes, a
	// header-line CR was not followed by LF, or a header line failed to
	// parse.
	KindMalformedHeaders
	// KindBadContentDisposition: Content-Disposition present but its
	// primary value isn't "form-data".
	KindBadContentDisposition
	// KindUnexpectedPart: strict mode saw a part name with no registered
	// target.
	KindUnexpectedPart
	// KindAlreadyStarted: Register called after the first Feed.
	KindAlreadyStarted
	// KindTargetError: a target's Start/DataReceived/Finish returned an
	// error, which is wrapped verbatim.
	KindTargetError
)

// Group buckets ErrorKind into the four diagnostic categories spec.md §7
// calls for ("errors are classified into the groups Internal /
// Delimiting / PartHeaders / UnexpectedPart for diagnostic messages").
type Group int

const (
	GroupInternal Group = iota
	GroupDelimiting
	GroupPartHeaders
	GroupUnexpectedPart
)

func (k ErrorKind) group() Group {
	switch k {
	case KindBadBoundary:
		return GroupDelimiting
	case KindMalformedHeaders, KindBadContentDisposition:
		return GroupPartHeaders
	case KindUnexpectedPart:
		return GroupUnexpectedPart
	default:
		return GroupInternal
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindBadBoundary:
		return "BadBoundary"
	case KindMalformedHeaders:
		return "MalformedHeaders"
	case KindBadContentDisposition:
		return "BadContentDisposition"
	case KindUnexpectedPart:
		return "UnexpectedPart"
	case KindAlreadyStarted:
		return "AlreadyStarted"
	case KindTargetError:
		return "TargetError"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type FeedChunk returns. It carries the byte
// offset (relative to the whole stream fed so far) where the condition
// was detected, per spec.md §7 ("the originating byte offset SHOULD be
// reported"), the offending part name for KindUnexpectedPart, and, for
// KindTargetError, the target's own error chained via Unwrap.
type Error struct {
	Kind   ErrorKind
	Offset int64
	Name   string
	Err    error

	// FinishErr is set if, after this error occurred, a best-effort
	// Finish() on the active target(s) also failed. It never displaces
	// Err as the primary cause (spec.md §7: "a finish error is chained
	// but does not displace the original error").
	FinishErr error
}

func (e *Error) Group() Group { return e.Kind.group() }

func (e *Error) Error() string {
	msg := fmt.Sprintf("multipart: %s at offset %d", e.Kind, e.Offset)
	if e.Name != "" {
		msg += fmt.Sprintf(" (part %q)", e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.FinishErr != nil {
		msg += fmt.Sprintf(" (finish also failed: %v)", e.FinishErr)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

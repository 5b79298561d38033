package multipart

import (
	"github.com/badu/streamform/finder"
	"github.com/badu/streamform/headerparser"
	"github.com/badu/streamform/target"
)

// state is the parser's internal position, per spec.md §3's data model.
// The model there additionally names BoundaryHyphen2 and BoundaryCR;
// this implementation follows the transition table of §4.4.2 exactly,
// which folds BoundaryHyphen2 into stateBoundaryBody (both consume the
// boundary token one byte at a time) and BoundaryCR into the single
// stateBoundaryBody -> stateBoundaryLF hop on CR.
type state int

const (
	stateStart state = iota
	stateBoundaryHyphen1
	stateBoundaryBody
	stateBoundaryLF
	stateHeaderLine
	stateHeaderCR
	stateHeadersDoneCR
	stateHeaderLF
	stateBody
	// stateBoundaryTail, stateBoundaryTailLF and stateBoundaryTailDash2
	// disambiguate, one byte at a time, whether a boundary token found
	// mid-body is followed by CRLF (another part) or "--" (the closing
	// terminator) — the same disambiguation the leading
	// Start/BoundaryHyphen1/BoundaryBody states perform for the very
	// first boundary line, reused here since a single KMP finder can
	// only tell us the fixed "\r\n--boundary" token matched, not what
	// follows it.
	stateBoundaryTail
	stateBoundaryTailLF
	stateBoundaryTailDash2
	stateEnd
)

const maxHeaderLineBytes = 8192

// activePart records the name of the part being read and the targets
// that were started for it and are still open.
type activePart struct {
	name    string
	targets []target.Target
}

// ParserCore is the streaming multipart/form-data decoder's state
// machine (spec.md §4). It consumes bytes one at a time via Feed and
// never buffers more than a small constant multiple of the boundary
// length plus one header line, regardless of part size. Grounded on
// badu-http/mime/multipart_reader.go and utils.go for the overall shape
// of a boundary-aware reader (dashBoundary, nlDashBoundary naming,
// IsBoundaryDelimiterLine) reinterpreted as a push state machine, and on
// original_source/streaming_form_data/parser.py's ParserState enum and
// per-state dispatch for the push-model control flow itself.
type ParserCore struct {
	boundary []byte
	binding  *TargetBinding

	st state

	// boundary-line matching (Start/BoundaryHyphen1/BoundaryBody/BoundaryLF)
	boundaryIdx int

	// header accumulation (HeaderLine/HeaderCR/HeadersDoneCR/HeaderLF)
	headerBuf []byte
	headers   []headerparser.Header

	// body boundary-token detection (Body)
	marker      *finder.SubstringFinder // CRLF--boundary
	bodyWindow  int
	bodyPending []byte

	active activePart

	offset   int64
	poisoned error
	started  bool
}

// NewParserCore builds a ParserCore for the given boundary token (without
// the leading "--") and target registry.
func NewParserCore(boundary []byte, binding *TargetBinding) (*ParserCore, error) {
	m, err := finder.New(append([]byte("\r\n--"), boundary...))
	if err != nil {
		return nil, err
	}
	return &ParserCore{
		boundary:   append([]byte(nil), boundary...),
		binding:    binding,
		marker:     m,
		bodyWindow: m.Len(),
	}, nil
}

package multipart

import (
	"errors"
	"fmt"

	"github.com/badu/streamform/headerparser"
	"github.com/badu/streamform/target"
)

// Feed advances the parser by the bytes in chunk. Once any call returns a
// non-nil error the parser is poisoned: every subsequent Feed, including
// with an empty chunk, returns that same error without doing further work
// (spec.md §7, "a parser that has returned an error is permanently
// failed"). The very first call locks the target registry against
// further Register calls.
func (p *ParserCore) Feed(chunk []byte) error {
	if p.poisoned != nil {
		return p.poisoned
	}
	if !p.started {
		p.started = true
		p.binding.lock()
	}
	for _, b := range chunk {
		if err := p.feedByte(b); err != nil {
			return err
		}
		p.offset++
	}
	return nil
}

// Close finalizes the parser when the underlying stream ends. A clean
// stream ends in stateEnd; anything else (including a still-open part)
// is reported as a truncation, after a best-effort Finish on the active
// target(s).
func (p *ParserCore) Close() error {
	if p.poisoned != nil {
		return p.poisoned
	}
	if p.st == stateEnd {
		return nil
	}
	return p.fail(KindBadBoundary, errors.New("stream ended before the closing boundary"))
}

func (p *ParserCore) feedByte(b byte) error {
	switch p.st {
	case stateStart:
		return p.stepStart(b)
	case stateBoundaryHyphen1:
		return p.stepBoundaryHyphen1(b)
	case stateBoundaryBody:
		return p.stepBoundaryBody(b)
	case stateBoundaryLF:
		return p.stepBoundaryLF(b)
	case stateHeaderLine:
		return p.stepHeaderLine(b)
	case stateHeaderCR:
		return p.stepHeaderCR(b)
	case stateHeadersDoneCR:
		return p.stepHeadersDoneCR(b)
	case stateHeaderLF:
		return p.stepHeaderLF(b)
	case stateBody:
		return p.stepBody(b)
	case stateBoundaryTail:
		return p.stepBoundaryTail(b)
	case stateBoundaryTailLF:
		return p.stepBoundaryTailLF(b)
	case stateBoundaryTailDash2:
		return p.stepBoundaryTailDash2(b)
	case stateEnd:
		return nil
	default:
		return nil
	}
}

// stepStart tolerates leading CRLFs before the opening boundary line
// (Open Question (a): only whitespace of that exact shape is preamble,
// anything else is a malformed stream).
func (p *ParserCore) stepStart(b byte) error {
	switch b {
	case '\r', '\n':
		return nil
	case '-':
		p.st = stateBoundaryHyphen1
		return nil
	default:
		return p.fail(KindBadBoundary, errors.New("expected leading boundary"))
	}
}

func (p *ParserCore) stepBoundaryHyphen1(b byte) error {
	if b != '-' {
		return p.fail(KindBadBoundary, errors.New("expected '--' before boundary token"))
	}
	p.st = stateBoundaryBody
	p.boundaryIdx = 0
	return nil
}

func (p *ParserCore) stepBoundaryBody(b byte) error {
	if p.boundaryIdx < len(p.boundary) {
		if b != p.boundary[p.boundaryIdx] {
			return p.fail(KindBadBoundary, fmt.Errorf("boundary token mismatch at byte %d", p.boundaryIdx))
		}
		p.boundaryIdx++
		return nil
	}
	switch b {
	case '\r':
		p.st = stateBoundaryLF
	case '-':
		p.st = stateEnd
	default:
		return p.fail(KindBadBoundary, errors.New("expected CRLF or '--' after boundary token"))
	}
	return nil
}

func (p *ParserCore) stepBoundaryLF(b byte) error {
	if b != '\n' {
		return p.fail(KindBadBoundary, errors.New("expected LF after boundary CR"))
	}
	p.resetHeaders()
	p.st = stateHeaderLine
	return nil
}

func (p *ParserCore) stepHeaderLine(b byte) error {
	if b == '\r' {
		p.st = stateHeaderCR
		return nil
	}
	return p.appendHeaderByte(b)
}

func (p *ParserCore) stepHeaderCR(b byte) error {
	if b != '\n' {
		return p.fail(KindMalformedHeaders, errors.New("expected LF after header-line CR"))
	}
	if len(p.headerBuf) > 0 {
		h, err := headerparser.ParseLine(p.headerBuf)
		if err != nil {
			return p.fail(KindMalformedHeaders, err)
		}
		p.headers = append(p.headers, h)
	}
	p.headerBuf = p.headerBuf[:0]
	p.st = stateHeadersDoneCR
	return nil
}

func (p *ParserCore) stepHeadersDoneCR(b byte) error {
	if b == '\r' {
		p.st = stateHeaderLF
		return nil
	}
	p.st = stateHeaderLine
	return p.appendHeaderByte(b)
}

func (p *ParserCore) stepHeaderLF(b byte) error {
	if b != '\n' {
		return p.fail(KindMalformedHeaders, errors.New("expected LF after headers-done CR"))
	}
	if err := p.openPart(); err != nil {
		return err
	}
	p.st = stateBody
	return nil
}

func (p *ParserCore) stepBody(b byte) error {
	p.marker.Feed(b)
	p.bodyPending = append(p.bodyPending, b)

	if p.marker.Found() {
		data := p.bodyPending[:len(p.bodyPending)-p.marker.Len()]
		if err := p.dispatchBody(data); err != nil {
			return err
		}
		if err := p.finishActivePart(); err != nil {
			return err
		}
		p.marker.Reset()
		p.bodyPending = p.bodyPending[:0]
		p.st = stateBoundaryTail
		return nil
	}

	if excess := len(p.bodyPending) - p.bodyWindow; excess > 0 {
		if err := p.dispatchBody(p.bodyPending[:excess]); err != nil {
			return err
		}
		p.bodyPending = append(p.bodyPending[:0], p.bodyPending[excess:]...)
	}
	return nil
}

func (p *ParserCore) stepBoundaryTail(b byte) error {
	switch b {
	case '\r':
		p.st = stateBoundaryTailLF
	case '-':
		p.st = stateBoundaryTailDash2
	default:
		return p.fail(KindBadBoundary, errors.New("expected CRLF or '--' after boundary token"))
	}
	return nil
}

func (p *ParserCore) stepBoundaryTailLF(b byte) error {
	if b != '\n' {
		return p.fail(KindBadBoundary, errors.New("expected LF after boundary CR"))
	}
	p.resetHeaders()
	p.st = stateHeaderLine
	return nil
}

func (p *ParserCore) stepBoundaryTailDash2(b byte) error {
	if b != '-' {
		return p.fail(KindBadBoundary, errors.New("expected second '-' of closing boundary"))
	}
	p.st = stateEnd
	return nil
}

func (p *ParserCore) resetHeaders() {
	p.headerBuf = p.headerBuf[:0]
	p.headers = p.headers[:0]
}

func (p *ParserCore) appendHeaderByte(b byte) error {
	p.headerBuf = append(p.headerBuf, b)
	if len(p.headerBuf) > maxHeaderLineBytes {
		return p.fail(KindMalformedHeaders, errors.New("header line exceeds limit"))
	}
	return nil
}

// dispatchBody hands data to every target bound to the part currently
// open, in registration order.
func (p *ParserCore) dispatchBody(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	for _, t := range p.active.targets {
		if err := t.DataReceived(data); err != nil {
			return p.fail(KindTargetError, err)
		}
	}
	return nil
}

func (p *ParserCore) finishActivePart() error {
	for _, t := range p.active.targets {
		if err := t.Finish(); err != nil {
			return p.fail(KindTargetError, err)
		}
	}
	p.active = activePart{}
	return nil
}

// openPart resolves the just-completed header block into a bound part:
// Content-Disposition supplies the part's name and optional filename,
// Content-Type (if present) is handed to the target, and the target(s)
// bound to that name are started. A part with no Content-Disposition at
// all has no name to resolve and is bound straight to the null target,
// in both strict and permissive mode (spec.md §4.2: "A missing
// Content-Disposition header is treated as 'this part has no name' ->
// bound to the null target" — unlike a present-but-unregistered name,
// this never goes through TargetBinding.resolve, so strict mode cannot
// reject it).
func (p *ParserCore) openPart() error {
	var cd, ct *headerparser.Header
	for i := range p.headers {
		h := &p.headers[i]
		switch h.FieldName {
		case headerparser.FieldContentDisposition:
			cd = h
		case headerparser.FieldContentType:
			ct = h
		}
	}

	var name, filename string
	var targets []target.Target

	if cd == nil {
		targets = []target.Target{target.Null()}
	} else {
		if !headerparser.IsFormData(cd.Value) {
			return p.fail(KindBadContentDisposition, fmt.Errorf("unexpected disposition %q", cd.Value))
		}

		name = cd.Get("name")
		filename = cd.Get("filename")

		var err error
		targets, err = p.binding.resolve(name)
		if err != nil {
			var me *Error
			if errors.As(err, &me) {
				me.Offset = p.offset
				return p.poison(me)
			}
			return p.fail(KindUnexpectedPart, err)
		}
	}

	for _, t := range targets {
		t.SetFilename(filename)
		if ct != nil {
			t.SetContentType(ct.Value)
		}
		if err := t.Start(); err != nil {
			return p.fail(KindTargetError, err)
		}
	}

	p.active = activePart{name: name, targets: targets}
	p.headers = p.headers[:0]
	return nil
}

func (p *ParserCore) fail(kind ErrorKind, err error) error {
	return p.poison(&Error{Kind: kind, Offset: p.offset, Err: err})
}

// poison records e as the parser's terminal error, attempts a best-effort
// Finish on any target whose part was left open, and returns e.
func (p *ParserCore) poison(e *Error) error {
	var first error
	for _, t := range p.active.targets {
		if err := t.Finish(); err != nil && first == nil {
			first = err
		}
	}
	p.active = activePart{}
	if first != nil {
		e.FinishErr = first
	}
	p.poisoned = e
	return e
}

package multipart

import "github.com/badu/streamform/target"

// TargetBinding is the registry mapping part names to the target(s) that
// should receive their data (spec.md §4.3). Grounded on
// original_source/streaming_form_data/_parser.pyx's target map plus
// badu-http/mime/form.go's Form.File/Form.Value multi-value maps — a
// single name MAY be bound to more than one target, and all of them are
// driven in registration order.
type TargetBinding struct {
	targets map[string][]target.Target
	strict  bool
	locked  bool
}

// NewTargetBinding creates a registry. In strict mode, parts whose name
// has no registered target produce a KindUnexpectedPart error before any
// of that part's data is dispatched; in permissive mode such parts are
// silently handed to a Null target.
func NewTargetBinding(strict bool) *TargetBinding {
	return &TargetBinding{
		targets: make(map[string][]target.Target),
		strict:  strict,
	}
}

// Register associates name with t. Returns KindAlreadyStarted once the
// parser has consumed its first chunk — registration is a pre-streaming
// configuration step only.
func (b *TargetBinding) Register(name string, t target.Target) error {
	if b.locked {
		return &Error{Kind: KindAlreadyStarted, Name: name}
	}
	b.targets[name] = append(b.targets[name], t)
	return nil
}

// lock forbids further Register calls; called once by ParserCore on its
// first Feed call, even one with an empty chunk.
func (b *TargetBinding) lock() { b.locked = true }

// resolve returns the targets bound to name, or a single Null target
// (permissive mode) / KindUnexpectedPart (strict mode) when none are
// registered.
func (b *TargetBinding) resolve(name string) ([]target.Target, error) {
	if ts, ok := b.targets[name]; ok {
		return ts, nil
	}
	if b.strict {
		return nil, &Error{Kind: KindUnexpectedPart, Name: name}
	}
	return []target.Target{target.Null()}, nil
}

package multipart

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/badu/streamform/internal/fixture"
	"github.com/badu/streamform/target"
)

const testBoundary = "boundary-test-42"

func newCore(t *testing.T, strict bool) (*ParserCore, *TargetBinding) {
	t.Helper()
	binding := NewTargetBinding(strict)
	core, err := NewParserCore([]byte(testBoundary), binding)
	if err != nil {
		t.Fatal(err)
	}
	return core, binding
}

// feedInPieces feeds payload to core split at each offset in splits
// (offsets must be sorted and within [0, len(payload)]), returning the
// first error encountered, if any.
func feedInPieces(core *ParserCore, payload []byte, splits []int) error {
	prev := 0
	for _, s := range append(splits, len(payload)) {
		if err := core.Feed(payload[prev:s]); err != nil {
			return err
		}
		prev = s
	}
	return nil
}

// S1: two plain fields, no file part.
func TestS1TwoFieldsNoFile(t *testing.T) {
	payload := fixture.New(testBoundary).
		AddField("first_name", "Larry").
		AddField("last_name", "Bird").
		Bytes()

	core, binding := newCore(t, true)
	first := target.NewValueTarget()
	last := target.NewValueTarget()
	mustRegister(t, binding, "first_name", first)
	mustRegister(t, binding, "last_name", last)

	if err := core.Feed(payload); err != nil {
		t.Fatal(err)
	}
	if err := core.Close(); err != nil {
		t.Fatal(err)
	}
	if got := first.String(); got != "Larry" {
		t.Fatalf("first_name = %q", got)
	}
	if got := last.String(); got != "Bird" {
		t.Fatalf("last_name = %q", got)
	}
}

// S2: a field value containing a near-miss boundary substring (missing
// the boundary's last character) must pass through untouched.
func TestS2NearMissBoundaryInBody(t *testing.T) {
	tricky := "--" + testBoundary[:len(testBoundary)-1] + " not quite the boundary"
	payload := fixture.New(testBoundary).
		AddField("notes", tricky).
		Bytes()

	core, binding := newCore(t, true)
	notes := target.NewValueTarget()
	mustRegister(t, binding, "notes", notes)

	if err := core.Feed(payload); err != nil {
		t.Fatal(err)
	}
	if got := notes.String(); got != tricky {
		t.Fatalf("notes = %q, want %q", got, tricky)
	}
}

// S3: single-byte chunking must reach the same result as one big Feed.
func TestS3SingleByteChunking(t *testing.T) {
	payload := fixture.New(testBoundary).
		AddField("a", "1").
		AddFile("upload", "data.bin", "application/octet-stream", []byte("binary\x00\x01content")).
		Bytes()

	core, binding := newCore(t, true)
	a := target.NewValueTarget()
	upload := target.NewValueTarget()
	mustRegister(t, binding, "a", a)
	mustRegister(t, binding, "upload", upload)

	for i := 0; i < len(payload); i++ {
		if err := core.Feed(payload[i : i+1]); err != nil {
			t.Fatalf("byte %d: %v", i, err)
		}
	}
	if err := core.Close(); err != nil {
		t.Fatal(err)
	}
	if got := a.String(); got != "1" {
		t.Fatalf("a = %q", got)
	}
	if got := upload.String(); got != "binary\x00\x01content" {
		t.Fatalf("upload = %q", got)
	}
}

// S4: a part carrying filename and Content-Type must hand both to its
// target before any data arrives.
func TestS4FilenameAndContentType(t *testing.T) {
	payload := fixture.New(testBoundary).
		AddFile("avatar", "me.png", "image/png", []byte("\x89PNG...")).
		Bytes()

	core, binding := newCore(t, true)
	avatar := target.NewValueTarget()
	mustRegister(t, binding, "avatar", avatar)

	if err := core.Feed(payload); err != nil {
		t.Fatal(err)
	}
	if avatar.MultipartFilename != "me.png" {
		t.Fatalf("filename = %q", avatar.MultipartFilename)
	}
	if avatar.MultipartContentType != "image/png" {
		t.Fatalf("content-type = %q", avatar.MultipartContentType)
	}
}

// S5: strict mode rejects a part name with no registered target.
func TestS5StrictModeRejectsUnexpectedPart(t *testing.T) {
	payload := fixture.New(testBoundary).
		AddField("known", "x").
		AddField("surprise", "y").
		Bytes()

	core, binding := newCore(t, true)
	known := target.NewValueTarget()
	mustRegister(t, binding, "known", known)

	err := core.Feed(payload)
	if err == nil {
		t.Fatal("expected an UnexpectedPart error")
	}
	var merr *Error
	if !errors.As(err, &merr) {
		t.Fatalf("expected *multipart.Error, got %T", err)
	}
	if merr.Kind != KindUnexpectedPart {
		t.Fatalf("Kind = %v, want KindUnexpectedPart", merr.Kind)
	}
	if merr.Name != "surprise" {
		t.Fatalf("Name = %q, want %q", merr.Name, "surprise")
	}
}

// Permissive mode, by contrast, silently discards unregistered parts.
func TestPermissiveModeDiscardsUnexpectedPart(t *testing.T) {
	payload := fixture.New(testBoundary).
		AddField("known", "x").
		AddField("surprise", "y").
		Bytes()

	core, binding := newCore(t, false)
	known := target.NewValueTarget()
	mustRegister(t, binding, "known", known)

	if err := core.Feed(payload); err != nil {
		t.Fatal(err)
	}
	if got := known.String(); got != "x" {
		t.Fatalf("known = %q", got)
	}
}

// S6: the closing terminator split across a chunk boundary must still
// be recognized.
func TestS6TerminatorSplitAcrossChunks(t *testing.T) {
	payload := fixture.New(testBoundary).
		AddField("only", "value").
		Bytes()

	// Split right inside the final "--boundary--" terminator.
	splitAt := strings.LastIndex(string(payload), "--"+testBoundary+"--") + len("--"+testBoundary)

	core, binding := newCore(t, true)
	only := target.NewValueTarget()
	mustRegister(t, binding, "only", only)

	if err := core.Feed(payload[:splitAt]); err != nil {
		t.Fatal(err)
	}
	if err := core.Feed(payload[splitAt:]); err != nil {
		t.Fatal(err)
	}
	if err := core.Close(); err != nil {
		t.Fatal(err)
	}
	if got := only.String(); got != "value" {
		t.Fatalf("only = %q", got)
	}
}

// Chunk-invariance: feeding the same payload split at every possible
// offset, and at several random partitions, must always produce the
// same assembled value.
func TestChunkInvarianceEveryOffset(t *testing.T) {
	payload := fixture.New(testBoundary).
		AddField("x", "hello world, this is a moderately long field value").
		Bytes()

	for split := 0; split <= len(payload); split++ {
		core, binding := newCore(t, true)
		x := target.NewValueTarget()
		mustRegister(t, binding, "x", x)

		if err := feedInPieces(core, payload, []int{split}); err != nil {
			t.Fatalf("split at %d: %v", split, err)
		}
		if got := x.String(); got != "hello world, this is a moderately long field value" {
			t.Fatalf("split at %d: x = %q", split, got)
		}
	}
}

func TestChunkInvarianceRandomPartitions(t *testing.T) {
	value := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	payload := fixture.New(testBoundary).
		AddField("body", value).
		Bytes()

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		for _, chunkSize := range []int{1, 2, 7, 8192, len(payload)} {
			core, binding := newCore(t, true)
			b := target.NewValueTarget()
			mustRegister(t, binding, "body", b)

			for off := 0; off < len(payload); {
				n := chunkSize
				if jitter := rng.Intn(3); jitter > 0 && n > jitter {
					n -= jitter
				}
				if off+n > len(payload) {
					n = len(payload) - off
				}
				if n == 0 {
					n = 1
				}
				if err := core.Feed(payload[off : off+n]); err != nil {
					t.Fatalf("chunkSize=%d trial=%d: %v", chunkSize, trial, err)
				}
				off += n
			}
			if got := b.String(); got != value {
				t.Fatalf("chunkSize=%d trial=%d: body mismatch (len got=%d want=%d)", chunkSize, trial, len(got), len(value))
			}
		}
	}
}

// Bounded memory: a single huge part body must never force the core to
// buffer more than a small constant window regardless of its size.
func TestBoundedMemoryDuringLargeBody(t *testing.T) {
	big := strings.Repeat("x", 1<<20)
	payload := fixture.New(testBoundary).
		AddField("big", big).
		Bytes()

	core, binding := newCore(t, true)
	b := target.NewValueTarget()
	mustRegister(t, binding, "big", b)

	if err := core.Feed(payload); err != nil {
		t.Fatal(err)
	}
	if core.bodyWindow > 256 {
		t.Fatalf("bodyWindow = %d, expected a small constant", core.bodyWindow)
	}
	if cap(core.bodyPending) > core.bodyWindow*4 {
		t.Fatalf("bodyPending grew to cap %d, want roughly bodyWindow-sized", cap(core.bodyPending))
	}
	if got := b.String(); got != big {
		t.Fatal("big field content mismatch")
	}
}

// Lifecycle: the target of a single-part payload is both started and
// finished.
func TestLifecycleStartFinishOnce(t *testing.T) {
	payload := fixture.New(testBoundary).
		AddField("once", "value").
		Bytes()

	core, binding := newCore(t, true)
	tg := target.NewValueTarget()
	mustRegister(t, binding, "once", tg)

	if err := core.Feed(payload); err != nil {
		t.Fatal(err)
	}
	if !tg.Started() || !tg.Finished() {
		t.Fatal("expected target to be started and finished")
	}
}

// Poisoning: once Feed has returned an error, every later call
// (even an empty one) returns that same error without further work.
func TestPoisoningAfterError(t *testing.T) {
	payload := fixture.New(testBoundary).
		AddField("oops", "x").
		Bytes()

	core, binding := newCore(t, true) // nothing registered -> strict rejects "oops"

	err1 := core.Feed(payload)
	if err1 == nil {
		t.Fatal("expected an error")
	}
	err2 := core.Feed(nil)
	if err2 != err1 {
		t.Fatalf("second Feed returned a different error: %v vs %v", err2, err1)
	}
	_ = binding
}

// Strict mode rejects the part before any of its body is dispatched —
// a target bound to a later, valid part must not see bytes belonging to
// the rejected part.
func TestStrictRejectsBeforeDispatch(t *testing.T) {
	payload := fixture.New(testBoundary).
		AddField("bad", "should never be stored").
		AddField("good", "fine").
		Bytes()

	core, binding := newCore(t, true)
	good := target.NewValueTarget()
	mustRegister(t, binding, "good", good)

	if err := core.Feed(payload); err == nil {
		t.Fatal("expected UnexpectedPart error")
	}
	if good.Started() {
		t.Fatal("later target must not have been started before the error")
	}
}

func mustRegister(t *testing.T, b *TargetBinding, name string, tg target.Target) {
	t.Helper()
	if err := b.Register(name, tg); err != nil {
		t.Fatalf("Register(%q): %v", name, err)
	}
}

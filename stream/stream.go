package stream

import (
	"encoding/xml"
	"io"
	"iter"
	"reflect"

	"github.com/golang/glog"

	"github.com/www-eee/elemstream/cursor"
	"github.com/www-eee/elemstream/eserr"
	"github.com/www-eee/elemstream/schema"
	"github.com/www-eee/elemstream/xmlutil"
)

// Status is a record sequence's (present) state.
type Status int

const (
	// StatusSeeking indicates the descent toward the target container
	// has not yet reached it.
	StatusSeeking Status = iota
	// StatusStreaming indicates target values are being produced from
	// the container's children.
	StatusStreaming
	// StatusDone indicates the sequence ended normally.
	StatusDone
	// StatusFailed indicates the sequence ended with a terminal error.
	StatusFailed
)

// Parser is a compiled streaming parser producing values of type T.
//
// A Parser is immutable and may be reused to run any number of
// independent parses, but a single in-progress Records sequence must
// not be driven from more than one goroutine.
type Parser[T any] struct {
	roots     []*schema.ElementDef
	container *schema.ElementDef
	targets   []*schema.ElementDef
}

// Compile builds a Parser from the builder's registry by naming the
// acceptable document roots, the target container, and the
// target-value elements. Every target must be a declared ordinary
// child of the container (not an exception child) with a target type
// assignable to T. Violations are schema errors here, never at parse
// time.
func Compile[T any](b *schema.Builder, roots []string, container string, targets []string) (*Parser[T], error) {
	p := &Parser[T]{}

	cdef, ok := b.Lookup(container)
	if !ok {
		return nil, eserr.Schema(eserr.WithName(b.Name(container)), eserr.WithMessage("element not defined"))
	}
	if cdef.Kind() != schema.KindContainer {
		return nil, eserr.Schema(eserr.WithName(cdef.Name()),
			eserr.WithMessage("target container must be a container definition, not "+cdef.Kind().String()))
	}
	p.container = cdef

	for _, name := range roots {
		def, ok := b.Lookup(name)
		if !ok {
			return nil, eserr.Schema(eserr.WithName(b.Name(name)), eserr.WithMessage("element not defined"))
		}
		p.roots = append(p.roots, def)
	}

	want := reflect.TypeOf((*T)(nil)).Elem()
	if len(targets) == 0 {
		return nil, eserr.Schema(eserr.WithName(cdef.Name()), eserr.WithMessage("no target elements named"))
	}
	for _, name := range targets {
		def, ok := b.Lookup(name)
		if !ok {
			return nil, eserr.Schema(eserr.WithName(b.Name(name)), eserr.WithMessage("element not defined"))
		}
		if cdef.DeclaresException(def) {
			return nil, eserr.Schema(eserr.WithName(def.Name()),
				eserr.WithMessage("target element is an exception child of "+xmlutil.ElemString(cdef.Name())))
		}
		if !cdef.DeclaresChild(def) {
			return nil, eserr.Schema(eserr.WithName(def.Name()),
				eserr.WithMessage("target element is not a declared child of "+xmlutil.ElemString(cdef.Name())))
		}
		if tt := def.TargetType(); !assignable(tt, want) {
			return nil, eserr.Schema(eserr.WithName(def.Name()),
				eserr.WithMessage("target type "+tt.String()+" is not assignable to "+want.String()))
		}
		p.targets = append(p.targets, def)
	}
	return p, nil
}

func assignable(from, to reflect.Type) bool {
	if to.Kind() == reflect.Interface {
		return from.Implements(to) || from == to
	}
	return from.AssignableTo(to)
}

// Parse starts a parse over the document read from r, returning its
// lazy record sequence. Nothing is read until the sequence is first
// advanced.
func (p *Parser[T]) Parse(r io.Reader, opts ...cursor.Option) *Records[T] {
	return p.ParseCursor(cursor.New(r, opts...))
}

// ParseCursor starts a parse over an existing cursor. The sequence
// owns the cursor and closes it when it ends.
func (p *Parser[T]) ParseCursor(c *cursor.Cursor) *Records[T] {
	return &Records[T]{p: p, cur: c}
}

// Records is a lazy, forward-only, single-pass sequence of target
// values. It must be driven from one goroutine at a time and cannot
// be restarted once its cursor is closed.
type Records[T any] struct {
	p      *Parser[T]
	cur    *cursor.Cursor
	status Status
	ctx    *schema.Context
	err    error
}

// Status returns the sequence's present state
func (r *Records[T]) Status() Status { return r.status }

// Close ends the sequence and closes the cursor. Idempotent; a
// closed sequence reports end of stream from Next.
func (r *Records[T]) Close() error {
	if r.status != StatusDone && r.status != StatusFailed {
		r.status = StatusDone
	}
	return r.cur.Close()
}

// Next advances the sequence, resuming the cursor from where it left
// off, and returns the next target value.
//
// eserr.ErrEndOfStream reports normal exhaustion. A recoverable
// exception-element error (see eserr.IsException) reports one
// occurrence of a declared exception child; the sequence remains
// valid and the following call resumes scanning. Any other error is
// terminal and repeated by later calls.
func (r *Records[T]) Next() (T, error) {
	var zero T
	switch r.status {
	case StatusDone:
		return zero, eserr.ErrEndOfStream
	case StatusFailed:
		return zero, r.err
	case StatusSeeking:
		if err := r.seek(); err != nil {
			if err == eserr.ErrEndOfStream {
				return zero, err
			}
			return zero, r.fail(err)
		}
	}
	return r.stream()
}

// Seq adapts the sequence for range-over-func consumption. Exception
// errors are yielded with a zero value and iteration continues; a
// terminal error is yielded last.
func (r *Records[T]) Seq() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := r.Next()
			if err == eserr.ErrEndOfStream {
				return
			}
			if !yield(v, err) {
				return
			}
			if eserr.IsFatal(err) || r.status == StatusFailed {
				return
			}
		}
	}
}

// seek drives the descent toward the target container. On return
// with nil error the sequence is streaming; eserr.ErrEndOfStream
// means the document held no target container (an empty sequence,
// not a failure).
func (r *Records[T]) seek() error {
	for {
		tok, err := r.cur.Peek()
		if err != nil {
			if err == io.EOF {
				glog.V(1).Info("document ended before target container; empty sequence")
				r.finish()
				return eserr.ErrEndOfStream
			}
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			// stray top-level character data
			if _, err := r.cur.Next(); err != nil {
				return err
			}
			continue
		}

		// the container itself at document level
		if r.p.container.Matches(se) {
			return r.enterContainer(nil)
		}

		if root := matchDef(r.p.roots, se); root != nil {
			_, err := root.Consume(nil, r.cur, r.p.container)
			if tr, ok := schema.IsTargetReached(err); ok {
				return r.enterContainer(tr.Parent)
			}
			if err != nil {
				return err
			}
			// root fully consumed without reaching the container;
			// scan on for further top-level content
			continue
		}

		// undeclared document element: discard wholesale
		glog.V(2).Infof("skipping undeclared document element %s", xmlutil.ElemString(se.Name))
		if _, err := r.cur.Next(); err != nil {
			return err
		}
		if err := r.cur.Skip(); err != nil {
			return err
		}
	}
}

// enterContainer consumes the container's start tag and transitions
// to streaming, keeping the container context live for its children.
func (r *Records[T]) enterContainer(parent *schema.Context) error {
	tok, err := r.cur.Next()
	if err != nil {
		return err
	}
	se, ok := tok.(xml.StartElement)
	if !ok {
		return eserr.Structural(eserr.WithMessage("expected container start tag, got " + xmlutil.TokenString(tok)))
	}
	glog.V(1).Infof("target container %s reached; streaming", xmlutil.ElemString(se.Name))
	r.ctx = schema.NewContext(parent, se)
	r.status = StatusStreaming
	return nil
}

// stream scans the container's direct children for the next target
// value, consuming and discarding declared non-target children (their
// saved values may still matter to later conversions) and skipping
// undeclared content.
func (r *Records[T]) stream() (T, error) {
	var zero T
	for {
		tok, err := r.cur.Peek()
		if err != nil {
			if err == io.EOF {
				r.finish()
				return zero, eserr.ErrEndOfStream
			}
			return zero, r.fail(err)
		}

		switch t := tok.(type) {
		case xml.EndElement:
			// the container's own end tag
			r.finish()
			return zero, eserr.ErrEndOfStream

		case xml.StartElement:
			if tdef := matchDef(r.p.targets, t); tdef != nil {
				v, err := tdef.Consume(r.ctx, r.cur, nil)
				if err != nil {
					return zero, r.fail(err)
				}
				if v == nil {
					return zero, nil
				}
				tv, ok := v.(T)
				if !ok {
					return zero, r.fail(eserr.Conversion(
						eserr.WithName(t.Name),
						eserr.WithMessage("produced value is not the stream's target type")))
				}
				return tv, nil
			}

			m, claimed := r.p.container.MatchChild(t)
			switch {
			case claimed && m.Exception:
				v, err := m.Def.Consume(r.ctx, r.cur, nil)
				if err != nil {
					return zero, r.fail(err)
				}
				return zero, eserr.Exception(
					eserr.WithName(t.Name),
					eserr.WithValue(v),
					eserr.WithPath(r.ctx.Path()))
			case claimed && !m.Text:
				// declared, non-target child: consume for its side
				// effects and discard the value
				if _, err := m.Def.Consume(r.ctx, r.cur, nil); err != nil {
					return zero, r.fail(err)
				}
			default:
				glog.V(2).Infof("skipping undeclared element %s under container", xmlutil.ElemString(t.Name))
				if _, err := r.cur.Next(); err != nil {
					return zero, r.fail(err)
				}
				if err := r.cur.Skip(); err != nil {
					return zero, r.fail(err)
				}
			}

		case xml.CharData:
			if _, err := r.cur.Next(); err != nil {
				return zero, r.fail(err)
			}
		}
	}
}

func (r *Records[T]) finish() {
	r.status = StatusDone
	r.cur.Close()
}

func (r *Records[T]) fail(err error) error {
	// an exception surfacing anywhere but as a direct container child
	// leaves no resumable cursor position; it latches as a
	// non-recoverable error, never as the exception class itself
	if e, ok := eserr.IsException(err); ok {
		err = eserr.Conversion(
			eserr.WithName(e.Name),
			eserr.WithPath(e.Path),
			eserr.WithValue(e.Value),
			eserr.WithMessage("unrecoverable exception element"),
			eserr.WithCause(e))
	}
	glog.V(1).Infof("sequence failed: %v", err)
	r.status = StatusFailed
	r.err = err
	r.cur.Close()
	return err
}

func matchDef(defs []*schema.ElementDef, se xml.StartElement) *schema.ElementDef {
	for _, def := range defs {
		if def.Name() == se.Name {
			return def
		}
	}
	return nil
}

package schema

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/www-eee/elemstream/cursor"
	"github.com/www-eee/elemstream/eserr"
	"github.com/www-eee/elemstream/xmlutil"
)

// TargetReached signals, during a seeking descent with a terminator
// armed, that the terminator's start tag is the next token on the
// cursor. The tag has not been consumed; Parent is the context that
// was active when it was seen.
type TargetReached struct {
	Parent *Context
}

func (*TargetReached) Error() string { return "target container reached" }

// IsTargetReached reports whether err is a TargetReached signal
func IsTargetReached(err error) (*TargetReached, bool) {
	tr, ok := err.(*TargetReached)
	return tr, ok
}

// Consume reads this definition's element from the cursor, which must
// be positioned at its start tag, and returns the element's target
// value. The element's entire subtree is consumed: declared children
// are delegated to recursively, undeclared content is skipped, and a
// declared exception child aborts the element with a recoverable
// error carrying the exception value.
//
// When term is non-nil and its start tag is peeked at any depth, the
// descent stops with a TargetReached error, leaving that tag
// unconsumed.
func (d *ElementDef) Consume(parent *Context, cur *cursor.Cursor, term *ElementDef) (any, error) {
	tok, err := cur.Next()
	if err != nil {
		if err == io.EOF {
			return nil, eserr.Structural(eserr.WithMessage("document ended before " + xmlutil.ElemString(d.name)))
		}
		return nil, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name != d.name {
		return nil, eserr.Structural(
			eserr.WithName(d.name),
			eserr.WithMessage("expected start tag, got "+xmlutil.TokenString(tok)))
	}

	ctx := NewContext(parent, start)
	if d.kind == KindRaw {
		return d.consumeRaw(ctx, start, cur)
	}

	for {
		tok, err := cur.Peek()
		if err != nil {
			if err == io.EOF {
				return nil, eserr.Structural(
					eserr.WithName(d.name),
					eserr.WithMessage("document ended inside element"),
					eserr.WithPath(ctx.Path()))
			}
			return nil, err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			// this element's own end tag: the decoder guarantees balance
			if _, err := cur.Next(); err != nil {
				return nil, err
			}
			return d.finish(ctx)

		case xml.StartElement:
			if term != nil && t.Name == term.name {
				return nil, &TargetReached{Parent: ctx}
			}
			m, claimed := d.MatchChild(t)
			switch {
			case claimed && m.Exception:
				v, err := m.Def.Consume(ctx, cur, nil)
				if err != nil {
					return nil, err
				}
				return nil, eserr.Exception(
					eserr.WithName(t.Name),
					eserr.WithValue(v),
					eserr.WithPath(ctx.Path()))
			case claimed:
				v, err := m.Def.Consume(ctx, cur, term)
				if err != nil {
					return nil, err
				}
				ctx.append(m.Def, v)
			default:
				glog.V(2).Infof("skipping undeclared element %s inside %s",
					xmlutil.ElemString(t.Name), xmlutil.ElemString(d.name))
				if _, err := cur.Next(); err != nil {
					return nil, err
				}
				if err := cur.Skip(); err != nil {
					return nil, err
				}
			}

		case xml.CharData:
			if m, claimed := d.MatchChild(t); claimed && m.Text {
				ctx.appendText(string(t))
			}
			if _, err := cur.Next(); err != nil {
				return nil, err
			}
		}
	}
}

// finish runs the conversion function over the completed context and
// records the value when the definition is flagged to save.
func (d *ElementDef) finish(ctx *Context) (any, error) {
	v, err := d.convert(ctx)
	if err != nil {
		return nil, eserr.Conversion(
			eserr.WithName(d.name),
			eserr.WithPath(ctx.Path()),
			eserr.WithCause(err))
	}
	if d.save {
		ctx.record(d, v)
	}
	return v, nil
}

// consumeRaw captures the element's subtree verbatim, re-encoding its
// tokens into a fragment document, and produces either the fragment's
// element node or the configured XPath evaluation over it.
func (d *ElementDef) consumeRaw(ctx *Context, start xml.StartElement, cur *cursor.Cursor) (any, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.EncodeToken(stripNamespaceDecls(start)); err != nil {
		return nil, eserr.Structural(eserr.WithName(d.name), eserr.WithCause(errors.WithStack(err)))
	}
	for depth := 1; depth > 0; {
		tok, err := cur.Next()
		if err != nil {
			if err == io.EOF {
				return nil, eserr.Structural(
					eserr.WithName(d.name),
					eserr.WithMessage("document ended inside element"),
					eserr.WithPath(ctx.Path()))
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			tok = stripNamespaceDecls(t)
		case xml.EndElement:
			depth--
		}
		if err := enc.EncodeToken(tok); err != nil {
			return nil, eserr.Structural(eserr.WithName(d.name), eserr.WithCause(errors.WithStack(err)))
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, eserr.Structural(eserr.WithName(d.name), eserr.WithCause(errors.WithStack(err)))
	}

	doc, err := xmlquery.Parse(&buf)
	if err != nil {
		return nil, eserr.Structural(eserr.WithName(d.name), eserr.WithCause(errors.WithStack(err)))
	}
	var elem *xmlquery.Node
	for at := doc.FirstChild; at != nil; at = at.NextSibling {
		if at.Type == xmlquery.ElementNode {
			elem = at
			break
		}
	}
	if elem == nil {
		return nil, eserr.Structural(eserr.WithName(d.name), eserr.WithMessage("empty captured fragment"))
	}

	var v any = elem
	if d.extract != nil {
		switch res := d.extract.Evaluate(xmlquery.CreateXPathNavigator(elem)).(type) {
		case *xpath.NodeIterator:
			var nodes []*xmlquery.Node
			for res.MoveNext() {
				if nav, ok := res.Current().(*xmlquery.NodeNavigator); ok {
					nodes = append(nodes, nav.Current())
				}
			}
			v = nodes
		default:
			v = res
		}
	}
	if d.save {
		ctx.record(d, v)
	}
	return v, nil
}

// stripNamespaceDecls removes xmlns declarations from a start tag
// before re-encoding; the encoder emits its own declarations for
// namespaced names, and duplicates would corrupt the fragment.
func stripNamespaceDecls(se xml.StartElement) xml.StartElement {
	attrs := make([]xml.Attr, 0, len(se.Attr))
	for _, a := range se.Attr {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		attrs = append(attrs, a)
	}
	se.Attr = attrs
	return se
}

package schema

import (
	"encoding/xml"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/www-eee/elemstream/xmlutil"
)

// Context is the per-element parsing state handed to conversion
// functions. It exposes the current element's start tag, its ancestor
// chain, the values produced so far by declared child recognizers,
// and the document-wide saved-value registry.
//
// A context is mutated only while its own children are being
// consumed, and is discarded once its conversion function has run.
// The parent link is read-only and used for ancestor traversal.
type Context struct {
	parent *Context
	start  xml.StartElement
	values map[*ElementDef][]any
	text   strings.Builder
	saved  *savedValues
}

// savedValues is the document-wide registry of values produced by
// definitions flagged to save. Append-only for one document parse.
type savedValues struct {
	byDef map[*ElementDef][]any
}

// NewContext returns a context for the element that produced start,
// as a child of parent. A nil parent starts a new document parse,
// with a fresh saved-value registry.
func NewContext(parent *Context, start xml.StartElement) *Context {
	ctx := &Context{parent: parent, start: start}
	if parent != nil {
		ctx.saved = parent.saved
	} else {
		ctx.saved = &savedValues{byDef: map[*ElementDef][]any{}}
	}
	return ctx
}

// Start returns the element's start tag
func (c *Context) Start() xml.StartElement { return c.start }

// Name returns the element's qualified name
func (c *Context) Name() xml.Name { return c.start.Name }

// Parent returns the enclosing element's context, or nil for a root
func (c *Context) Parent() *Context { return c.parent }

// Path returns the qualified names from the root element down to and
// including this element.
func (c *Context) Path() []xml.Name {
	var path []xml.Name
	for at := c; at != nil; at = at.parent {
		path = append(path, at.start.Name)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Attr returns the named attribute's value and whether it is present.
// An attribute written without a namespace matches any wanted space.
func (c *Context) Attr(local string, spaces ...string) (string, bool) {
	return xmlutil.Attr(c.start.Attr, xmlutil.XMLName(local, spaces...))
}

// RequiredAttr returns the named attribute's value, or an error
// naming the attribute and element when absent.
func (c *Context) RequiredAttr(local string, spaces ...string) (string, error) {
	v, ok := c.Attr(local, spaces...)
	if !ok {
		return "", errors.Errorf("missing attribute %q on %s", local, xmlutil.ElemString(c.start.Name))
	}
	return v, nil
}

// AttrInt parses the named attribute as an integer, returning dflt
// when the attribute is absent.
func (c *Context) AttrInt(local string, dflt int) (int, error) {
	v, ok := c.Attr(local)
	if !ok {
		return dflt, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.Wrapf(err, "attribute %q on %s", local, xmlutil.ElemString(c.start.Name))
	}
	return i, nil
}

// AttrBool parses the named attribute as a boolean, returning dflt
// when the attribute is absent.
func (c *Context) AttrBool(local string, dflt bool) (bool, error) {
	v, ok := c.Attr(local)
	if !ok {
		return dflt, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, errors.Wrapf(err, "attribute %q on %s", local, xmlutil.ElemString(c.start.Name))
	}
	return b, nil
}

// Prefixes returns the namespace prefixes declared on this element's
// start tag.
func (c *Context) Prefixes() xmlutil.PrefixMap { return xmlutil.NewPrefixMap(c.start.Attr...) }

// Text returns the concatenation of all character data claimed by the
// text recognizer among this element's direct children.
func (c *Context) Text() string { return c.text.String() }

// Values returns the values produced so far by the given declared
// child definition among this element's direct children, in document
// order.
func (c *Context) Values(def *ElementDef) []any { return c.values[def] }

// ValuesNamed returns the values of declared children matching the
// qualified name and, when typ is non-nil, whose definitions carry
// that target type.
func (c *Context) ValuesNamed(name xml.Name, typ reflect.Type) []any {
	var out []any
	for def, vals := range c.values {
		if def.name != name {
			continue
		}
		if typ != nil && def.typ != typ {
			continue
		}
		out = append(out, vals...)
	}
	return out
}

// First returns the first value produced by def, if any
func (c *Context) First(def *ElementDef) (any, bool) {
	if vals := c.values[def]; len(vals) > 0 {
		return vals[0], true
	}
	return nil, false
}

// Required returns the first value produced by def, or an error
// naming the missing child element.
func (c *Context) Required(def *ElementDef) (any, error) {
	v, ok := c.First(def)
	if !ok {
		return nil, errors.Errorf("missing child %s in %s",
			xmlutil.ElemString(def.name), xmlutil.ElemString(c.start.Name))
	}
	return v, nil
}

// Saved returns the values saved so far anywhere in the document by
// the given definition, in document order. Only values produced
// before this point in the stream are visible.
func (c *Context) Saved(def *ElementDef) []any { return c.saved.byDef[def] }

// SavedFirst returns the first saved value of def, if any
func (c *Context) SavedFirst(def *ElementDef) (any, bool) {
	if vals := c.saved.byDef[def]; len(vals) > 0 {
		return vals[0], true
	}
	return nil, false
}

func (c *Context) append(def *ElementDef, v any) {
	if c.values == nil {
		c.values = map[*ElementDef][]any{}
	}
	c.values[def] = append(c.values[def], v)
}

func (c *Context) appendText(s string) { c.text.WriteString(s) }

func (c *Context) record(def *ElementDef, v any) {
	c.saved.byDef[def] = append(c.saved.byDef[def], v)
}

// FirstOf returns the first value produced by def in ctx, typed.
// It is a convenience over Context.First for conversion functions.
func FirstOf[T any](ctx *Context, def *ElementDef) (T, bool) {
	var zero T
	v, ok := ctx.First(def)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// ValuesOf returns the values produced by def in ctx, typed.
// Values of other types are skipped.
func ValuesOf[T any](ctx *Context, def *ElementDef) []T {
	var out []T
	for _, v := range ctx.Values(def) {
		if t, ok := v.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// SavedOf returns the saved values of def visible to ctx, typed
func SavedOf[T any](ctx *Context, def *ElementDef) []T {
	var out []T
	for _, v := range ctx.Saved(def) {
		if t, ok := v.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

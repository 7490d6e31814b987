package schema

import (
	"encoding/xml"
	"reflect"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/pkg/errors"

	"github.com/www-eee/elemstream/eserr"
	"github.com/www-eee/elemstream/inject"
	"github.com/www-eee/elemstream/xmlutil"
)

// Builder is a registry of element definitions plus the operations to
// add new ones. It carries a namespace used to qualify unqualified
// local names; ForkNamespace yields a builder for another namespace
// sharing the same registry.
//
// The registry is append-only and definitions are immutable once
// added. Operations referencing children or exception children
// resolve them against the registry at definition time and fail when
// a reference is unknown, which forces bottom-up, acyclic schemas.
type Builder struct {
	ns  string
	reg *registry
}

type registry struct {
	defs map[xml.Name]*ElementDef
}

// NewBuilder returns a Builder qualifying local names with namespace
func NewBuilder(namespace string) *Builder {
	return &Builder{ns: namespace, reg: &registry{defs: map[xml.Name]*ElementDef{}}}
}

// ForkNamespace returns a builder for the given namespace, sharing
// this builder's registry by reference. Elements defined through
// either builder are visible to both.
func (b *Builder) ForkNamespace(namespace string) *Builder {
	return &Builder{ns: namespace, reg: b.reg}
}

// Namespace returns the namespace used to qualify local names
func (b *Builder) Namespace() string { return b.ns }

// Name qualifies a name string against the builder's namespace.
// Clark notation ("{uri}local") overrides the builder namespace;
// a bare local name takes it.
func (b *Builder) Name(s string) xml.Name {
	if strings.HasPrefix(s, "{") {
		if i := strings.IndexByte(s, '}'); i >= 0 {
			return xml.Name{Space: s[1:i], Local: s[i+1:]}
		}
	}
	return xml.Name{Space: b.ns, Local: s}
}

// Lookup resolves a name string to a registered definition
func (b *Builder) Lookup(s string) (*ElementDef, bool) {
	def, ok := b.reg.defs[b.Name(s)]
	return def, ok
}

// Must panics when a definition operation returned an error. It
// allows chained schema construction where failure is programmer
// error.
func Must(def *ElementDef, err error) *ElementDef {
	if err != nil {
		panic(err)
	}
	return def
}

// DefOption configures an element definition being added
type DefOption func(*defConfig)

type defConfig struct {
	save       bool
	children   []string
	exceptions []string
	withText   bool
	matchSpace bool
	overrides  map[string]FieldFn
	xpathExpr  string
}

// WithSave records every value the definition produces in the
// document-wide saved-value registry.
func WithSave() DefOption { return func(c *defConfig) { c.save = true } }

// WithChildren declares ordinary child elements by name. Each name
// must already be registered.
func WithChildren(names ...string) DefOption {
	return func(c *defConfig) { c.children = append(c.children, names...) }
}

// WithExceptions declares exception child elements by name. Each name
// must already be registered. Encountering one while consuming the
// parent aborts the parent with a recoverable error carrying the
// exception element's value.
func WithExceptions(names ...string) DefOption {
	return func(c *defConfig) { c.exceptions = append(c.exceptions, names...) }
}

// WithText adds the text recognizer to a generic definition's
// children, making character data available as Context.Text.
func WithText() DefOption { return func(c *defConfig) { c.withText = true } }

// MatchWhitespace makes the text recognizer claim whitespace-only
// character data, which it otherwise ignores.
func MatchWhitespace() DefOption { return func(c *defConfig) { c.matchSpace = true } }

// WithField registers a per-field override accessor for an injected
// definition. The accessor takes priority over the default
// attribute/child lookup for the named field.
func WithField(name string, fn FieldFn) DefOption {
	return func(c *defConfig) {
		if c.overrides == nil {
			c.overrides = map[string]FieldFn{}
		}
		c.overrides[name] = fn
	}
}

// WithXPath post-processes a raw definition's captured fragment with
// the given XPath expression; the evaluation result becomes the
// target value.
func WithXPath(expr string) DefOption { return func(c *defConfig) { c.xpathExpr = expr } }

// Element adds a generic definition converting through fn
func Element[T any](b *Builder, name string, fn func(*Context) (T, error), opts ...DefOption) (*ElementDef, error) {
	def := &ElementDef{
		kind:    KindGeneric,
		typ:     typeOf[T](),
		convert: func(ctx *Context) (any, error) { return fn(ctx) },
	}
	return b.add(name, def, opts)
}

// TextElement adds a text-only definition: fn receives the element's
// concatenated character data.
func TextElement[T any](b *Builder, name string, fn func(string) (T, error), opts ...DefOption) (*ElementDef, error) {
	def := &ElementDef{
		kind:    KindText,
		typ:     typeOf[T](),
		convert: func(ctx *Context) (any, error) { return fn(ctx.Text()) },
	}
	opts = append(opts, WithText())
	return b.add(name, def, opts)
}

// Text adds a text-only definition producing the character data
// itself, a shortcut for the common string case.
func (b *Builder) Text(name string, opts ...DefOption) (*ElementDef, error) {
	return TextElement(b, name, func(s string) (string, error) { return s, nil }, opts...)
}

// WrapperElement adds a definition whose target value is identically
// its single child's value. The child must already be registered and
// carry target type T.
func WrapperElement[T any](b *Builder, name, child string, opts ...DefOption) (*ElementDef, error) {
	childDef, ok := b.Lookup(child)
	if !ok {
		return nil, errNotDefined(b.Name(child))
	}
	if want := typeOf[T](); childDef.typ != want {
		return nil, eserr.Schema(
			eserr.WithName(b.Name(name)),
			eserr.WithMessage("wrapper target type "+want.String()+" differs from child type "+childDef.typ.String()))
	}
	def := &ElementDef{
		kind: KindWrapper,
		typ:  typeOf[T](),
		convert: func(ctx *Context) (any, error) {
			v, ok := ctx.First(childDef)
			if !ok {
				return nil, errors.Errorf("wrapped child %s produced no value", xmlutil.ElemString(childDef.name))
			}
			return v, nil
		},
	}
	opts = append(opts, WithChildren(child))
	return b.add(name, def, opts)
}

// Container adds a grouping definition. Its value is the matched
// start tag itself, a marker rather than meaningful data; containers
// exist to host children and to serve as streaming checkpoints.
func (b *Builder) Container(name string, opts ...DefOption) (*ElementDef, error) {
	def := &ElementDef{
		kind:    KindContainer,
		typ:     reflect.TypeOf(xml.StartElement{}),
		convert: func(ctx *Context) (any, error) { return ctx.Start(), nil },
	}
	return b.add(name, def, opts)
}

// InjectedElement adds a definition whose value is built reflectively
// from the element's attributes and accumulated child values. T must
// be a struct type or pointer to one; field overrides registered with
// WithField bypass the default name lookup.
func InjectedElement[T any](b *Builder, name string, opts ...DefOption) (*ElementDef, error) {
	typ := typeOf[T]()
	st := typ
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, eserr.Schema(
			eserr.WithName(b.Name(name)),
			eserr.WithMessage("injected target "+typ.String()+" is not a struct type"))
	}
	def := &ElementDef{kind: KindInjected, typ: typ}
	def.convert = func(ctx *Context) (any, error) { return injectValue(def, ctx) }
	return b.add(name, def, opts)
}

// injectValue assembles the field set for an injected definition and
// delegates construction to the inject collaborator. Attributes come
// first, then child values under their local names, then overrides.
func injectValue(def *ElementDef, ctx *Context) (any, error) {
	fields := map[string]any{}
	for _, attr := range ctx.Start().Attr {
		if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
			continue
		}
		fields[attr.Name.Local] = attr.Value
	}
	for _, slot := range def.children {
		if slot.text {
			continue
		}
		switch vals := ctx.Values(slot.def); len(vals) {
		case 0:
		case 1:
			fields[slot.def.name.Local] = vals[0]
		default:
			fields[slot.def.name.Local] = vals
		}
	}
	for name, fn := range def.overrides {
		// an override displaces a default entry for the same field,
		// even when the names differ only by case
		for k := range fields {
			if k != name && strings.EqualFold(k, name) {
				delete(fields, k)
			}
		}
		v, err := fn(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", name)
		}
		fields[name] = v
	}
	return inject.Struct(def.typ, fields)
}

// RawElement adds a definition that captures its entire subtree as a
// document fragment (*xmlquery.Node). With WithXPath, the expression
// is compiled now and evaluated against the fragment to produce the
// target value instead.
func (b *Builder) RawElement(name string, opts ...DefOption) (*ElementDef, error) {
	cfg := applyOpts(opts)
	def := &ElementDef{kind: KindRaw, typ: reflect.TypeOf((*xmlquery.Node)(nil))}
	if cfg.xpathExpr != "" {
		expr, err := xpath.Compile(cfg.xpathExpr)
		if err != nil {
			return nil, eserr.Schema(
				eserr.WithName(b.Name(name)),
				eserr.WithMessage("invalid xpath "+cfg.xpathExpr),
				eserr.WithCause(err))
		}
		def.extract = expr
		def.typ = anyType
	}
	return b.add(name, def, opts)
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

func applyOpts(opts []DefOption) *defConfig {
	cfg := &defConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func errNotDefined(n xml.Name) error {
	return eserr.Schema(eserr.WithName(n), eserr.WithMessage("element not defined"))
}

// add resolves the configured references, validates the single-claim
// rule, and inserts the definition under its qualified name.
func (b *Builder) add(name string, def *ElementDef, opts []DefOption) (*ElementDef, error) {
	cfg := applyOpts(opts)
	def.name = b.Name(name)
	def.save = cfg.save
	def.matchSpace = cfg.matchSpace
	def.overrides = cfg.overrides

	if _, exists := b.reg.defs[def.name]; exists {
		return nil, eserr.Schema(eserr.WithName(def.name), eserr.WithMessage("duplicate element definition"))
	}

	claimed := map[xml.Name]bool{}
	for _, ref := range cfg.children {
		child, ok := b.Lookup(ref)
		if !ok {
			return nil, errNotDefined(b.Name(ref))
		}
		if claimed[child.name] {
			return nil, errAmbiguous(def.name, child.name)
		}
		claimed[child.name] = true
		def.children = append(def.children, childSlot{def: child})
	}
	if cfg.withText {
		def.children = append(def.children, childSlot{text: true})
	}
	for _, ref := range cfg.exceptions {
		ex, ok := b.Lookup(ref)
		if !ok {
			return nil, errNotDefined(b.Name(ref))
		}
		if claimed[ex.name] {
			return nil, errAmbiguous(def.name, ex.name)
		}
		claimed[ex.name] = true
		def.exceptions = append(def.exceptions, ex)
	}

	b.reg.defs[def.name] = def
	return def, nil
}

func errAmbiguous(parent, child xml.Name) error {
	return eserr.Schema(
		eserr.WithName(parent),
		eserr.WithMessage("child "+xmlutil.ElemString(child)+" claimed by more than one recognizer"))
}

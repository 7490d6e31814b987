package schema

import (
	"encoding/xml"
	"reflect"
	"strings"

	"github.com/antchfx/xpath"
)

// Kind identifies an element definition's variant. The set is closed;
// consumption dispatches exhaustively over it.
type Kind int

const (
	// KindGeneric converts through a caller-supplied function over the
	// element's parsing context.
	KindGeneric Kind = iota
	// KindText converts the element's concatenated character data.
	KindText
	// KindWrapper adopts its single child's value as its own.
	KindWrapper
	// KindContainer produces only its start tag as a marker value.
	KindContainer
	// KindInjected builds its value reflectively from attributes and
	// accumulated child values.
	KindInjected
	// KindRaw captures its whole subtree as a document fragment.
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindText:
		return "text"
	case KindWrapper:
		return "wrapper"
	case KindContainer:
		return "container"
	case KindInjected:
		return "injected"
	case KindRaw:
		return "raw"
	default:
		return "Kind(?)"
	}
}

// FieldFn is a per-field override accessor for injected definitions.
// It takes priority over the default attribute/child lookup for the
// named field.
type FieldFn func(*Context) (any, error)

// ElementDef is an immutable element definition. Definitions are
// created through a Builder and shared by reference: several parents
// may declare the same child definition.
type ElementDef struct {
	name    xml.Name
	typ     reflect.Type
	kind    Kind
	convert func(*Context) (any, error)
	save    bool

	children   []childSlot
	exceptions []*ElementDef

	// injected definitions
	overrides map[string]FieldFn

	// raw definitions
	extract *xpath.Expr

	// text matching
	matchSpace bool
}

// childSlot is one declared child recognizer: either the text
// recognizer or an element recognizer for a referenced definition.
// The variant is closed; evaluation switches on text.
type childSlot struct {
	text bool
	def  *ElementDef
}

// Name returns the definition's qualified name
func (d *ElementDef) Name() xml.Name { return d.name }

// Kind returns the definition's variant
func (d *ElementDef) Kind() Kind { return d.kind }

// TargetType returns the type of the definition's target value
func (d *ElementDef) TargetType() reflect.Type { return d.typ }

// Saved reports whether produced values are recorded in the
// document-wide saved-value registry.
func (d *ElementDef) Saved() bool { return d.save }

// Matches reports whether tok is a start tag for this definition
func (d *ElementDef) Matches(tok xml.Token) bool {
	se, ok := tok.(xml.StartElement)
	return ok && se.Name == d.name
}

// ChildMatch describes which declared recognizer, if any, claimed a
// peeked token. Exactly one recognizer may claim a given token; the
// builder rejects schemas where two could.
type ChildMatch struct {
	// Def is the matched element definition; nil for a text match
	Def *ElementDef
	// Text is true when the text recognizer claimed character data
	Text bool
	// Exception is true when Def is declared as an exception child
	Exception bool
}

// MatchChild tries this definition's declared recognizers, ordinary
// children first, against the peeked token. The second return is
// false when no recognizer claims the token (undeclared content).
func (d *ElementDef) MatchChild(tok xml.Token) (ChildMatch, bool) {
	switch tok := tok.(type) {
	case xml.StartElement:
		for _, slot := range d.children {
			if !slot.text && slot.def.name == tok.Name {
				return ChildMatch{Def: slot.def}, true
			}
		}
		for _, ex := range d.exceptions {
			if ex.name == tok.Name {
				return ChildMatch{Def: ex, Exception: true}, true
			}
		}
	case xml.CharData:
		for _, slot := range d.children {
			if slot.text && (d.matchSpace || strings.TrimSpace(string(tok)) != "") {
				return ChildMatch{Text: true}, true
			}
		}
	}
	return ChildMatch{}, false
}

// DeclaresChild reports whether child is a declared ordinary child
func (d *ElementDef) DeclaresChild(child *ElementDef) bool {
	for _, slot := range d.children {
		if !slot.text && slot.def == child {
			return true
		}
	}
	return false
}

// DeclaresException reports whether child is a declared exception child
func (d *ElementDef) DeclaresException(child *ElementDef) bool {
	for _, ex := range d.exceptions {
		if ex == child {
			return true
		}
	}
	return false
}

package schema

import (
	"encoding/xml"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/www-eee/elemstream/xmlutil"
)

func start(local string, attrs ...xml.Attr) xml.StartElement {
	return xml.StartElement{Name: xmlutil.XMLName(local), Attr: attrs}
}

func TestContextAttrs(t *testing.T) {
	a := assert.New(t)
	ctx := NewContext(nil, start("item",
		xml.Attr{Name: xmlutil.XMLName("id"), Value: "42"},
		xml.Attr{Name: xmlutil.XMLName("active"), Value: "true"},
		xml.Attr{Name: xmlutil.XMLName("pfx", "xmlns"), Value: "urn:x"},
	))

	v, ok := ctx.Attr("id")
	a.True(ok)
	a.Equal("42", v)

	_, ok = ctx.Attr("missing")
	a.False(ok)

	v, err := ctx.RequiredAttr("id")
	a.NoError(err)
	a.Equal("42", v)
	_, err = ctx.RequiredAttr("missing")
	a.ErrorContains(err, `missing attribute "missing"`)

	i, err := ctx.AttrInt("id", -1)
	a.NoError(err)
	a.Equal(42, i)
	i, err = ctx.AttrInt("missing", -1)
	a.NoError(err)
	a.Equal(-1, i)
	_, err = ctx.AttrInt("active", 0)
	a.Error(err)

	b, err := ctx.AttrBool("active", false)
	a.NoError(err)
	a.True(b)
	b, err = ctx.AttrBool("missing", true)
	a.NoError(err)
	a.True(b)

	a.Equal("urn:x", ctx.Prefixes().Namespace("pfx"))
}

func TestContextPathAndAncestry(t *testing.T) {
	a := assert.New(t)
	root := NewContext(nil, start("doc"))
	mid := NewContext(root, start("batch"))
	leaf := NewContext(mid, start("item"))

	a.Nil(root.Parent())
	a.Same(mid, leaf.Parent())
	a.Equal([]xml.Name{{Local: "doc"}, {Local: "batch"}, {Local: "item"}}, leaf.Path())
	a.Equal([]xml.Name{{Local: "doc"}}, root.Path())
	a.Equal(xmlutil.XMLName("item"), leaf.Name())
}

func TestContextValues(t *testing.T) {
	a := assert.New(t)
	strDef := &ElementDef{name: xmlutil.XMLName("s"), typ: reflect.TypeOf("")}
	intDef := &ElementDef{name: xmlutil.XMLName("s"), typ: reflect.TypeOf(0)}
	other := &ElementDef{name: xmlutil.XMLName("t"), typ: reflect.TypeOf("")}

	ctx := NewContext(nil, start("parent"))
	ctx.append(strDef, "one")
	ctx.append(strDef, "two")
	ctx.append(intDef, 3)

	a.Equal([]any{"one", "two"}, ctx.Values(strDef))
	a.Empty(ctx.Values(other))

	v, ok := ctx.First(strDef)
	a.True(ok)
	a.Equal("one", v)
	_, ok = ctx.First(other)
	a.False(ok)

	_, err := ctx.Required(other)
	a.ErrorContains(err, "missing child")

	// name+type grouped lookup
	a.ElementsMatch([]any{"one", "two"}, ctx.ValuesNamed(xmlutil.XMLName("s"), reflect.TypeOf("")))
	a.Equal([]any{3}, ctx.ValuesNamed(xmlutil.XMLName("s"), reflect.TypeOf(0)))
	a.Len(ctx.ValuesNamed(xmlutil.XMLName("s"), nil), 3)

	a.Equal([]string{"one", "two"}, ValuesOf[string](ctx, strDef))
	first, ok := FirstOf[string](ctx, strDef)
	a.True(ok)
	a.Equal("one", first)
	_, ok = FirstOf[int](ctx, strDef)
	a.False(ok)
}

func TestSavedRegistrySharedByDescent(t *testing.T) {
	a := assert.New(t)
	def := &ElementDef{name: xmlutil.XMLName("cur"), typ: reflect.TypeOf("")}

	root := NewContext(nil, start("doc"))
	childA := NewContext(root, start("a"))
	childA.record(def, "EUR")

	// visible through any context of the same document parse
	childB := NewContext(root, start("b"))
	a.Equal([]any{"EUR"}, childB.Saved(def))
	v, ok := childB.SavedFirst(def)
	a.True(ok)
	a.Equal("EUR", v)
	a.Equal([]string{"EUR"}, SavedOf[string](childB, def))

	// a fresh document parse starts empty
	other := NewContext(nil, start("doc"))
	a.Empty(other.Saved(def))
	_, ok = other.SavedFirst(def)
	a.False(ok)
}

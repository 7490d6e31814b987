package xmlutil

import (
	"encoding/xml"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXMLName(t *testing.T) {
	for _, tc := range []struct {
		local  string
		spaces []string
		want   xml.Name
	}{
		{local: "foo", want: xml.Name{Local: "foo"}},
		{local: "foo", spaces: []string{"bar"}, want: xml.Name{Local: "foo", Space: "bar"}},
		{local: "foo", spaces: []string{"bar", "baz"}, want: xml.Name{Local: "foo", Space: "bar"}},
		{want: xml.Name{}},
	} {
		t.Run(fmt.Sprintf("%v", tc.want), func(t *testing.T) { assert.New(t).Equal(tc.want, XMLName(tc.local, tc.spaces...)) })
	}
}

func TestElemString(t *testing.T) {
	for _, tc := range []struct {
		n    xml.Name
		want string
	}{
		{n: XMLName("foo"), want: "<foo>"},
		{n: XMLName("foo", "urn:x"), want: `<foo xmlns="urn:x">`},
		{n: xml.Name{}, want: ""},
	} {
		t.Run(tc.want, func(t *testing.T) { assert.New(t).Equal(tc.want, ElemString(tc.n)) })
	}
}

func TestTokenString(t *testing.T) {
	a := assert.New(t)
	a.Equal("<foo>", TokenString(xml.StartElement{Name: XMLName("foo")}))
	a.Equal("</foo>", TokenString(xml.EndElement{Name: XMLName("foo")}))
	a.Equal("", TokenString(xml.CharData("text")))
}

func TestAttr(t *testing.T) {
	attrs := []xml.Attr{
		{Name: XMLName("id"), Value: "42"},
		{Name: XMLName("kind", "urn:x"), Value: "widget"},
	}
	for _, tc := range []struct {
		want    xml.Name
		value   string
		present bool
	}{
		{want: XMLName("id"), value: "42", present: true},
		{want: XMLName("id", "urn:x"), value: "42", present: true}, // local-name fallback
		{want: XMLName("kind", "urn:x"), value: "widget", present: true},
		{want: XMLName("kind", "urn:y"), present: false},
		{want: XMLName("missing"), present: false},
	} {
		t.Run(tc.want.Local, func(t *testing.T) {
			a := assert.New(t)
			v, ok := Attr(attrs, tc.want)
			a.Equal(tc.present, ok)
			a.Equal(tc.value, v)
		})
	}
}

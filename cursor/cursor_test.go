package cursor

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/www-eee/elemstream/eserr"
)

func TestPeekNext(t *testing.T) {
	a := assert.New(t)
	c := New(strings.NewReader(`<a><b>text</b></a>`))

	tok, err := c.Peek()
	a.NoError(err)
	se, ok := tok.(xml.StartElement)
	a.True(ok)
	a.Equal("a", se.Name.Local)

	// peek is stable until consumed
	again, err := c.Peek()
	a.NoError(err)
	a.Equal(tok, again)

	tok, err = c.Next()
	a.NoError(err)
	a.Equal("a", tok.(xml.StartElement).Name.Local)

	tok, err = c.Next()
	a.NoError(err)
	a.Equal("b", tok.(xml.StartElement).Name.Local)

	tok, err = c.Next()
	a.NoError(err)
	a.Equal("text", string(tok.(xml.CharData)))

	_, err = c.Next()
	a.NoError(err) // </b>
	_, err = c.Next()
	a.NoError(err) // </a>

	_, err = c.Next()
	a.Equal(io.EOF, err)
	_, err = c.Peek()
	a.Equal(io.EOF, err)
}

func TestTokenCopies(t *testing.T) {
	a := assert.New(t)
	c := New(strings.NewReader(`<a x="1"/><b/>`))
	first, err := c.Next()
	a.NoError(err)
	_, err = c.Next() // </a>; would clobber a shared buffer
	a.NoError(err)
	a.Equal("a", first.(xml.StartElement).Name.Local)
	a.Equal("1", first.(xml.StartElement).Attr[0].Value)
}

func TestFiltersNonStructuralTokens(t *testing.T) {
	a := assert.New(t)
	c := New(strings.NewReader(`<?xml version="1.0"?><!-- hi --><a><!-- there --></a>`))
	tok, err := c.Next()
	a.NoError(err)
	a.Equal("a", tok.(xml.StartElement).Name.Local)
	_, ok := mustNext(t, c).(xml.EndElement)
	a.True(ok)
}

func TestSkip(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		next string // local name expected after the skip
	}{
		{name: "flat", in: `<r><junk/><keep/></r>`, next: "keep"},
		{name: "nested", in: `<r><junk><deep><deeper>x</deeper></deep></junk><keep/></r>`, next: "keep"},
		{name: "text", in: `<r><junk>just text</junk><keep/></r>`, next: "keep"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)
			c := New(strings.NewReader(tc.in))
			mustNext(t, c) // <r>
			mustNext(t, c) // <junk>
			a.NoError(c.Skip())
			tok, err := c.Peek()
			a.NoError(err)
			a.Equal(tc.next, tok.(xml.StartElement).Name.Local)
		})
	}
}

func TestSkipTruncated(t *testing.T) {
	a := assert.New(t)
	c := New(strings.NewReader(`<r><junk><open>`))
	mustNext(t, c)
	mustNext(t, c)
	err := c.Skip()
	a.Error(err)
	e, ok := eserr.AsError(err)
	a.True(ok)
	a.Equal(eserr.ClassStructural, e.Class)
}

func TestStructuralErrorLatches(t *testing.T) {
	a := assert.New(t)
	c := New(strings.NewReader(`<a><b></a>`))
	mustNext(t, c)
	mustNext(t, c)
	_, err := c.Next()
	a.Error(err)
	e, ok := eserr.AsError(err)
	a.True(ok)
	a.Equal(eserr.ClassStructural, e.Class)

	_, err2 := c.Next()
	a.Equal(err, err2)
	_, err2 = c.Peek()
	a.Equal(err, err2)
}

func TestCloseIdempotent(t *testing.T) {
	a := assert.New(t)
	cl := &countingCloser{}
	c := New(strings.NewReader(`<a/>`), WithCloser(cl))
	a.NoError(c.Close())
	a.NoError(c.Close())
	a.Equal(1, cl.n)
	_, err := c.Next()
	a.Equal(io.EOF, err)
}

func TestCharsetReader(t *testing.T) {
	a := assert.New(t)
	// "café" in ISO-8859-1: é is a single 0xE9 byte
	doc := `<?xml version="1.0" encoding="ISO-8859-1"?><a>caf` + "\xe9" + `</a>`
	c := New(strings.NewReader(doc))
	mustNext(t, c)
	tok, err := c.Next()
	a.NoError(err)
	a.Equal("café", string(tok.(xml.CharData)))

	_, err = CharsetReader("no-such-charset", strings.NewReader(""))
	a.Error(err)
}

func mustNext(t *testing.T, c *Cursor) xml.Token {
	t.Helper()
	tok, err := c.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return tok
}

type countingCloser struct{ n int }

func (c *countingCloser) Close() error { c.n++; return nil }

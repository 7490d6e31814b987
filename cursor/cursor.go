package cursor

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/www-eee/elemstream/eserr"
)

// Cursor is a peekable token cursor over an XML document.
//
// Tokens returned are stable copies, safe to retain across calls.
// End of document is reported as io.EOF from both Peek and Next;
// any other read failure is reported as a structural error and
// latched, so every later call returns the same error.
type Cursor struct {
	d       *xml.Decoder
	closer  io.Closer
	peeked  xml.Token
	hasPeek bool
	closed  bool
	err     error
}

// Option is a Cursor option function
type Option func(*Cursor)

// WithCloser ties c to the cursor: Close will close it (once).
func WithCloser(c io.Closer) Option { return func(cur *Cursor) { cur.closer = c } }

// WithCharsetReader overrides the decoder's charset conversion.
// The default reader resolves charset labels via the WHATWG index,
// accepting documents in any encoding that index knows about.
func WithCharsetReader(fn func(charset string, input io.Reader) (io.Reader, error)) Option {
	return func(cur *Cursor) { cur.d.CharsetReader = fn }
}

// New returns a new Cursor reading the document from r
func New(r io.Reader, opts ...Option) *Cursor {
	d := xml.NewDecoder(r)
	d.CharsetReader = CharsetReader
	c := &Cursor{d: d}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CharsetReader converts input from the named charset to UTF-8 using
// the WHATWG encoding index. It is the default for cursors built by New.
func CharsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, errors.Wrapf(err, "unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Peek returns the next token without consuming it.
// Repeated calls return the same token until Next is called.
func (c *Cursor) Peek() (xml.Token, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.closed {
		return nil, io.EOF
	}
	if !c.hasPeek {
		tok, err := c.read()
		if err != nil {
			return nil, err
		}
		c.peeked, c.hasPeek = tok, true
	}
	return c.peeked, nil
}

// Next returns the next token, consuming it
func (c *Cursor) Next() (xml.Token, error) {
	if c.hasPeek {
		tok := c.peeked
		c.peeked, c.hasPeek = nil, false
		return tok, nil
	}
	if c.err != nil {
		return nil, c.err
	}
	if c.closed {
		return nil, io.EOF
	}
	return c.read()
}

// read pulls the next significant token from the decoder,
// dropping comments, directives and processing instructions.
func (c *Cursor) read() (xml.Token, error) {
	for {
		tok, err := c.d.Token()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			c.err = eserr.Structural(eserr.WithMessage("reading token"), eserr.WithCause(errors.WithStack(err)))
			return nil, c.err
		}
		switch tok.(type) {
		case xml.StartElement, xml.EndElement, xml.CharData:
			return xml.CopyToken(tok), nil
		default:
			// comments, directives, processing instructions
		}
	}
}

// Skip consumes tokens until the end element balancing the most
// recently consumed start element has been read, discarding the
// entire subtree including nested elements.
func (c *Cursor) Skip() error {
	for depth := 1; depth > 0; {
		tok, err := c.Next()
		if err != nil {
			if err == io.EOF {
				return eserr.Structural(eserr.WithMessage("document ended inside skipped element"))
			}
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

// Close closes the cursor and any attached closer. Idempotent.
// Later Peek/Next calls return io.EOF (or a previously latched error).
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.peeked, c.hasPeek = nil, false
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

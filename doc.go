/*
Package elemstream is a set of libraries for consuming large or
unbounded XML documents as typed, lazily-evaluated value sequences.

A caller declares up front how each XML element of interest maps to an
application value (a schema), then asks for an iterator over one
designated element type embedded anywhere in the document. The engine
walks the underlying token stream exactly once, skipping undeclared
content, converting declared content through per-element rules, and
yielding results one at a time as they become available. A full
in-memory document tree is never built, and a single bad record (an
"exception element") does not abort the stream.

The cursor sub-directory holds the peekable token cursor the engine
reads from, schema holds element definitions and the schema builder,
and stream holds the top-level parser and its lazy record sequence.
See those packages for construction and iteration details.
*/
package elemstream

/*
Package cursor provides a peekable XML token cursor.

The cursor yields start-element, end-element and character-data
tokens from an underlying document, supports one-token lookahead
and idempotent close, and reports end of document as io.EOF.
Comments, processing instructions and directives are filtered out
before tokens reach the caller. Parsing layers above use lookahead
to decide whether to claim, delegate or skip the next token without
consuming it.
*/
package cursor

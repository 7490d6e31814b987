// Package schema provides element definitions and the schema builder
// for streaming XML parsing.
//
// Schemas are built bottom-up: every element definition is registered
// under its qualified name, and may reference only elements already
// present in the registry as children or exception children. This
// rules out forward and cyclic references at construction time, so
// no reference can fail to resolve during a parse.
//
// Element definitions come in a closed set of kinds:
//
//	generic    children are accumulated into a parsing context and a
//	           caller-supplied conversion function computes the
//	           target value from that context.
//	text       the target value is derived purely from the element's
//	           concatenated character data.
//	wrapper    the target value is identically the value of the
//	           definition's single child.
//	container  no meaningful target value; exists to group children,
//	           and may act as the streaming checkpoint for a parse.
//	injected   the target value is built reflectively from the
//	           element's attributes and accumulated child values.
//	raw        the element's whole subtree is captured as a document
//	           fragment, optionally post-processed by an XPath
//	           expression.
//
// Consumption of a matched element proceeds token by token: declared
// children are delegated to recursively, declared exception children
// abort the element with a recoverable error carrying their value,
// and undeclared content is skipped wholesale. Once the element's end
// tag is read, the conversion function runs over the completed
// context, and the value is optionally recorded in the document-wide
// saved-value registry for later conversions to read.
package schema

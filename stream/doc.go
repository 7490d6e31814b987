/*
Package stream provides the top-level streaming parser.

A Parser is compiled from a schema builder by naming the acceptable
document roots, one target container, and the target-value elements
that are declared children of that container. Parsing runs in two
phases: a seeking descent through the document's declared structure
until the target container's start tag is reached, then a streaming
phase producing a lazy, forward-only, single-pass sequence of target
values as the container's children are consumed.

The sequence is caller-paced: each call to Next resumes the
underlying cursor from exactly where it left off. Exception children
of the container surface as recoverable errors that leave the
sequence valid; structural and conversion failures are terminal.
*/
package stream

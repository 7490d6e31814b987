/*
Package inject constructs struct values from sets of named fields.

It is the field-injection collaborator used by injected-target element
definitions: given a struct type and a mapping from field name to
value, it builds an instance by matching names against struct fields
and xml tags, converting scalar values where the kinds allow it.
*/
package inject

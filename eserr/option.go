package eserr

import "encoding/xml"

// Option is an Error option function
type Option func(*Error)

func WithMessage(msg string) Option   { return func(e *Error) { e.Message = msg } }
func WithName(n xml.Name) Option      { return func(e *Error) { e.Name = n } }
func WithPath(path []xml.Name) Option { return func(e *Error) { e.Path = path } }
func WithValue(v any) Option          { return func(e *Error) { e.Value = v } }
func WithCause(err error) Option      { return func(e *Error) { e.Cause = err } }

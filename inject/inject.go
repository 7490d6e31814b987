package inject

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Struct constructs a value of type typ from the named fields.
//
// typ must be a struct type or a pointer to one; the returned value
// has type typ. Each entry in fields is matched to a struct field by
// exact name, then by the field's xml tag, then case-insensitively.
// String values are converted to the field's scalar kind; other
// values must be assignable or convertible. A field name with no
// match, or a value that cannot be converted, is a mapping error.
// Struct fields with no corresponding entry keep their zero value.
func Struct(typ reflect.Type, fields map[string]any) (any, error) {
	st := typ
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, errors.Errorf("inject: %s is not a struct type", typ)
	}

	ptr := reflect.New(st)
	elem := ptr.Elem()
	for name, value := range fields {
		fv, ok := findField(elem, name)
		if !ok {
			return nil, errors.Errorf("inject: no field %q in %s", name, st)
		}
		if err := setField(fv, value); err != nil {
			return nil, errors.Wrapf(err, "inject: field %q of %s", name, st)
		}
	}

	if typ.Kind() == reflect.Pointer {
		return ptr.Interface(), nil
	}
	return elem.Interface(), nil
}

func findField(v reflect.Value, name string) (reflect.Value, bool) {
	st := v.Type()
	// exact field name
	if f, ok := st.FieldByName(name); ok && f.IsExported() {
		return v.FieldByIndex(f.Index), true
	}
	// xml tag, then case-insensitive name
	var ci reflect.Value
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		if tagName(f) == name {
			return v.Field(i), true
		}
		if !ci.IsValid() && strings.EqualFold(f.Name, name) {
			ci = v.Field(i)
		}
	}
	if ci.IsValid() {
		return ci, true
	}
	return reflect.Value{}, false
}

// tagName returns the leading name of the field's xml tag, without
// any namespace qualifier or flags.
func tagName(f reflect.StructField) string {
	tag, ok := f.Tag.Lookup("xml")
	if !ok {
		return ""
	}
	if i := strings.IndexByte(tag, ','); i >= 0 {
		tag = tag[:i]
	}
	if i := strings.LastIndexByte(tag, ' '); i >= 0 {
		tag = tag[i+1:]
	}
	return tag
}

func setField(fv reflect.Value, value any) error {
	if value == nil {
		return nil
	}
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		fv = fv.Elem()
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(fv.Type()) {
		fv.Set(rv)
		return nil
	}
	// appending a single value to a slice-typed field, before the
	// string path so a lone string can still populate a string slice
	if fv.Kind() == reflect.Slice && rv.Type().AssignableTo(fv.Type().Elem()) {
		fv.Set(reflect.Append(fv, rv))
		return nil
	}
	// a value slice maps element-wise, so accumulated child buckets
	// ([]any) land in typed slice fields
	if fv.Kind() == reflect.Slice && rv.Kind() == reflect.Slice {
		out := reflect.MakeSlice(fv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev := rv.Index(i)
			if ev.Kind() == reflect.Interface {
				ev = ev.Elem()
			}
			if err := setField(out.Index(i), ev.Interface()); err != nil {
				return err
			}
		}
		fv.Set(out)
		return nil
	}
	if s, ok := value.(string); ok {
		return setScalar(fv, s)
	}
	if rv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(rv.Convert(fv.Type()))
		return nil
	}
	return errors.Errorf("cannot map %T to %s", value, fv.Type())
}

func setScalar(fv reflect.Value, s string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return errors.WithStack(err)
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, fv.Type().Bits())
		if err != nil {
			return errors.WithStack(err)
		}
		fv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(strings.TrimSpace(s), 10, fv.Type().Bits())
		if err != nil {
			return errors.WithStack(err)
		}
		fv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), fv.Type().Bits())
		if err != nil {
			return errors.WithStack(err)
		}
		fv.SetFloat(f)
	default:
		return errors.Errorf("cannot map string to %s", fv.Type())
	}
	return nil
}

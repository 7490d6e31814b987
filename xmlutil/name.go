package xmlutil

import "encoding/xml"

// XMLName is a shortcut for creating xml.Name, where typically you want at least
// a local name, and perhaps a namespace value as well.
func XMLName(local string, spaces ...string) xml.Name {
	n := xml.Name{Local: local}
	if len(spaces) > 0 {
		n.Space = spaces[0]
	}
	return n
}

// ElemString renders n as a start tag, including an xmlns attribute
// when the name carries a namespace. Returns "" for an empty name.
func ElemString(n xml.Name) string { return genElemStr(n, "<") }

// TokenString renders start and end element tokens for diagnostics.
// Other token kinds render as "".
func TokenString(t xml.Token) string {
	switch t := t.(type) {
	case xml.StartElement:
		return genElemStr(t.Name, "<")
	case xml.EndElement:
		return genElemStr(t.Name, "</")
	}
	return ""
}

func genElemStr(n xml.Name, pfx string) string {
	local := n.Local
	if local == "" {
		return ""
	}
	if ns := n.Space; ns != "" {
		return pfx + local + ` xmlns="` + ns + `">`
	}
	return pfx + local + ">"
}

// Attr returns the value of the named attribute among attrs and
// whether it was present. An exact name match wins; otherwise an
// attribute written without a namespace matches the wanted local name.
func Attr(attrs []xml.Attr, want xml.Name) (string, bool) {
	var fallback *xml.Attr
	for i, a := range attrs {
		if a.Name == want {
			return a.Value, true
		}
		if a.Name.Space == "" && a.Name.Local == want.Local && fallback == nil {
			fallback = &attrs[i]
		}
	}
	if fallback != nil {
		return fallback.Value, true
	}
	return "", false
}

package xmlutil

import (
	"encoding/xml"
	"sort"
)

// PrefixMap is a prefix to namespace URI map, built from the xmlns
// declarations present on an element's start tag.
type PrefixMap map[string]string

// NewPrefixMap returns a PrefixMap, containing the passed XML attributes.
// A default (unprefixed) xmlns declaration is stored under the "" key.
func NewPrefixMap(attrs ...xml.Attr) PrefixMap {
	pmap := PrefixMap{}
	for _, attr := range attrs {
		switch {
		case attr.Name.Space == "xmlns":
			pmap[attr.Name.Local] = attr.Value
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			pmap[""] = attr.Value
		}
	}
	return pmap
}

// Namespace returns the namespace URI for the given prefix
func (m PrefixMap) Namespace(prefix string) string { return m[prefix] }

// Prefix returns any prefixes found for the namespace URI,
// sorted lexically.
func (m PrefixMap) Prefix(nsURI string) (pfxes []string) {
	for k, v := range m {
		if nsURI == v {
			pfxes = append(pfxes, k)
		}
	}
	sort.Strings(pfxes)
	return pfxes
}

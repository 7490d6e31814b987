package xmlutil

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
)

type strPair struct{ a, b string }

func TestPrefixMap(t *testing.T) {
	for _, tc := range []struct {
		attrs   []xml.Attr
		nsTest  []strPair
		pfxTest []strPair
	}{
		// #00: identity check, no declarations
		{},

		// #01
		{
			attrs: []xml.Attr{
				{Name: XMLName("pfx-b", "xmlns"), Value: "val-b"},
				{Name: XMLName("pfx-a", "xmlns"), Value: "val-a"},
				{Name: XMLName("xmlns"), Value: "val-default"},
			},
			nsTest: []strPair{
				{a: "pfx-a", b: "val-a"},
				{a: "pfx-b", b: "val-b"},
				{a: "", b: "val-default"},
			},
			pfxTest: []strPair{
				{b: "pfx-a", a: "val-a"},
				{b: "pfx-b", a: "val-b"},
				{b: "", a: "val-default"},
			},
		},
	} {
		t.Run("", func(t *testing.T) {
			a := assert.New(t)
			pmap := NewPrefixMap(tc.attrs...)
			for _, tt := range tc.nsTest {
				a.Equal(tt.b, pmap.Namespace(tt.a))
			}
			for _, tt := range tc.pfxTest {
				var pfx string
				if pfxes := pmap.Prefix(tt.a); pfxes != nil {
					pfx = pfxes[0]
				}
				a.Equal(tt.b, pfx)
			}
		})
	}
}

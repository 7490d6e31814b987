package stream_test

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/www-eee/elemstream/schema"
	"github.com/www-eee/elemstream/stream"
)

// This example streams order records out of a report document one at
// a time, without loading the document into memory.
func Example() {
	doc := `
	  <report>
	    <orders>
	      <order id="17"><total>12.50</total></order>
	      <order id="18"><total>99.00</total></order>
	    </orders>
	  </report>`

	type order struct {
		ID    string
		Total float64
	}

	b := schema.NewBuilder("")
	total := schema.Must(schema.TextElement(b, "total", func(s string) (float64, error) {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}))
	schema.Must(schema.Element(b, "order", func(ctx *schema.Context) (order, error) {
		id, err := ctx.RequiredAttr("id")
		if err != nil {
			return order{}, err
		}
		t, _ := schema.FirstOf[float64](ctx, total)
		return order{ID: id, Total: t}, nil
	}, schema.WithChildren("total")))
	schema.Must(b.Container("orders", schema.WithChildren("order")))
	schema.Must(b.Container("report", schema.WithChildren("orders")))

	p, err := stream.Compile[order](b, []string{"report"}, "orders", []string{"order"})
	if err != nil {
		panic(err)
	}

	for o, err := range p.Parse(strings.NewReader(doc)).Seq() {
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Printf("order %s: %.2f\n", o.ID, o.Total)
	}
	// Output:
	// order 17: 12.50
	// order 18: 99.00
}

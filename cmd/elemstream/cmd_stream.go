package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/spf13/cobra"

	"github.com/www-eee/elemstream/eserr"
	"github.com/www-eee/elemstream/schema"
	"github.com/www-eee/elemstream/stream"
)

func newStreamCmd() *cobra.Command {
	var (
		namespace string
		path      string
		record    string
		xpathExpr string
	)

	cmd := &cobra.Command{
		Use:   "stream [file]",
		Short: "Stream record elements from an XML document",
		Long: `Stream record elements from an XML document, one per line.

The document is read from the named file, or from stdin when no file
is given. --path names the element chain from the document root down
to the container whose children are streamed, separated by slashes
(for example "feed/batch/items"); --record names the record element
among that container's children.

Each record prints as its raw XML. With --xpath, the expression is
evaluated over each record and the result prints as JSON instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := io.Reader(os.Stdin)
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open: %w", err)
				}
				defer f.Close()
				in = f
			}

			parser, err := buildParser(namespace, path, record, xpathExpr)
			if err != nil {
				return err
			}

			records := parser.Parse(in)
			defer records.Close()
			for v, err := range records.Seq() {
				if e, ok := eserr.IsException(err); ok {
					fmt.Fprintf(os.Stderr, "exception element: %v\n", e)
					continue
				}
				if err != nil {
					return err
				}
				if err := printRecord(os.Stdout, v); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "namespace URI qualifying element names")
	cmd.Flags().StringVarP(&path, "path", "p", "", "slash-separated element chain from document root to the container")
	cmd.Flags().StringVarP(&record, "record", "r", "", "record element name among the container's children")
	cmd.Flags().StringVarP(&xpathExpr, "xpath", "x", "", "XPath expression evaluated over each record")
	cmd.MarkFlagRequired("path")
	cmd.MarkFlagRequired("record")

	return cmd
}

// buildParser compiles a schema where every element on the container
// path is a container definition and the record element is captured
// raw, so arbitrary documents can be streamed without writing
// conversion code.
func buildParser(namespace, path, record, xpathExpr string) (*stream.Parser[any], error) {
	chain := strings.Split(strings.Trim(path, "/"), "/")
	if len(chain) == 0 || chain[0] == "" {
		return nil, fmt.Errorf("--path must name at least the container element")
	}

	b := schema.NewBuilder(namespace)

	var recordOpts []schema.DefOption
	if xpathExpr != "" {
		recordOpts = append(recordOpts, schema.WithXPath(xpathExpr))
	}
	if _, err := b.RawElement(record, recordOpts...); err != nil {
		return nil, err
	}

	// innermost first: each chain element hosts the next one in
	container := chain[len(chain)-1]
	if _, err := b.Container(container, schema.WithChildren(record)); err != nil {
		return nil, err
	}
	for i := len(chain) - 2; i >= 0; i-- {
		if _, err := b.Container(chain[i], schema.WithChildren(chain[i+1])); err != nil {
			return nil, err
		}
	}

	return stream.Compile[any](b, []string{chain[0]}, container, []string{record})
}

func printRecord(w io.Writer, v any) error {
	if node, ok := v.(*xmlquery.Node); ok {
		_, err := fmt.Fprintln(w, node.OutputXML(true))
		return err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

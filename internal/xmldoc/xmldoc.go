package xmldoc

import (
	"bytes"
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/oshokin/udunits2-publisher/internal/domain/udunits"
)

const xmlnsPrefix = "xmlns"

// Parse parses data into a document node.
func Parse(data []byte) (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parse XML: %w", udunits.ErrStructural, err)
	}

	return doc, nil
}

// Root returns the document element of doc.
func Root(doc *xmlquery.Node) (*xmlquery.Node, error) {
	if doc != nil && doc.Type == xmlquery.ElementNode {
		return doc, nil
	}

	for child := docFirstChild(doc); child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return child, nil
		}
	}

	return nil, fmt.Errorf("%w: document has no root element", udunits.ErrStructural)
}

// ChildElements returns the element children of n whose local name is name,
// regardless of prefix, in document order.
func ChildElements(n *xmlquery.Node, name string) ([]*xmlquery.Node, error) {
	expr, err := xpath.Compile(fmt.Sprintf("*[local-name()='%s']", name))
	if err != nil {
		return nil, fmt.Errorf("compile child query %q: %w", name, err)
	}

	return xmlquery.QuerySelectorAll(n, expr), nil
}

// FirstChildElement is ChildElements limited to the first match.
// A missing child is a structural error.
func FirstChildElement(n *xmlquery.Node, name string) (*xmlquery.Node, error) {
	children, err := ChildElements(n, name)
	if err != nil {
		return nil, err
	}

	if len(children) == 0 {
		return nil, fmt.Errorf("%w: <%s> has no <%s> element", udunits.ErrStructural, n.Data, name)
	}

	return children[0], nil
}

// Namespaces collects every xmlns declaration in the document, in document
// order. A prefix declared twice keeps its last URL. The default namespace
// is reported under the empty prefix.
func Namespaces(doc *xmlquery.Node) *udunits.Namespaces {
	var result udunits.Namespaces

	var walk func(n *xmlquery.Node)

	walk = func(n *xmlquery.Node) {
		if n.Type == xmlquery.ElementNode {
			for _, attr := range n.Attr {
				switch {
				case attr.Name.Space == xmlnsPrefix:
					result.Set(attr.Name.Local, attr.Value)
				case attr.Name.Space == "" && attr.Name.Local == xmlnsPrefix:
					result.Set("", attr.Value)
				}
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	if doc != nil {
		walk(doc)
	}

	return &result
}

func docFirstChild(doc *xmlquery.Node) *xmlquery.Node {
	if doc == nil {
		return nil
	}

	return doc.FirstChild
}

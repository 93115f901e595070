package xmldoc

import (
	"bufio"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Declaration is written before the root element.
const Declaration = "<?xml version='1.0' encoding='UTF-8'?>\n"

//nolint:gochecknoglobals // Stateless replacers.
var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;", "\n", "&#10;")
)

// Encode writes the XML declaration followed by root and its subtree.
// Output is byte-for-byte deterministic for a given tree.
func Encode(w io.Writer, root *xmlquery.Node) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(Declaration); err != nil {
		return err
	}

	writeNode(bw, root)

	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}

	return bw.Flush()
}

// writeNode ignores write errors; bufio.Writer keeps the first one for Flush.
func writeNode(w *bufio.Writer, n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.ElementNode:
		_ = w.WriteByte('<')
		writeName(w, n)

		for _, attr := range n.Attr {
			_ = w.WriteByte(' ')

			if attr.Name.Space != "" {
				_, _ = w.WriteString(attr.Name.Space)
				_ = w.WriteByte(':')
			}

			_, _ = w.WriteString(attr.Name.Local)
			_, _ = w.WriteString(`="`)
			_, _ = attrEscaper.WriteString(w, attr.Value)
			_ = w.WriteByte('"')
		}

		if n.FirstChild == nil {
			_, _ = w.WriteString(" />")
			return
		}

		_ = w.WriteByte('>')

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			writeNode(w, child)
		}

		_, _ = w.WriteString("</")
		writeName(w, n)
		_ = w.WriteByte('>')
	case xmlquery.TextNode:
		_, _ = textEscaper.WriteString(w, n.Data)
	case xmlquery.CharDataNode:
		_, _ = w.WriteString("<![CDATA[")
		_, _ = w.WriteString(n.Data)
		_, _ = w.WriteString("]]>")
	case xmlquery.CommentNode:
		_, _ = w.WriteString("<!--")
		_, _ = w.WriteString(n.Data)
		_, _ = w.WriteString("-->")
	default:
	}
}

func writeName(w *bufio.Writer, n *xmlquery.Node) {
	if n.Prefix != "" {
		_, _ = w.WriteString(n.Prefix)
		_ = w.WriteByte(':')
	}

	_, _ = w.WriteString(n.Data)
}

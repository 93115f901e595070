package xmldoc

import (
	"github.com/antchfx/xmlquery"
)

// NewElement returns a detached element node.
func NewElement(prefix, name string) *xmlquery.Node {
	return &xmlquery.Node{
		Type:   xmlquery.ElementNode,
		Data:   name,
		Prefix: prefix,
	}
}

// NewText returns a detached text node.
func NewText(text string) *xmlquery.Node {
	return &xmlquery.Node{
		Type: xmlquery.TextNode,
		Data: text,
	}
}

// NewComment returns a detached comment node.
func NewComment(text string) *xmlquery.Node {
	return &xmlquery.Node{
		Type: xmlquery.CommentNode,
		Data: text,
	}
}

// Copy returns a detached deep copy of the element n. When prefix is not
// empty it replaces the prefix of n and of every descendant element.
// Comments and processing instructions are not copied.
func Copy(n *xmlquery.Node, prefix string) *xmlquery.Node {
	if n == nil {
		return nil
	}

	out := &xmlquery.Node{
		Type:   n.Type,
		Data:   n.Data,
		Prefix: n.Prefix,
	}

	if n.Type == xmlquery.ElementNode {
		if prefix != "" {
			out.Prefix = prefix
		}

		if len(n.Attr) > 0 {
			out.Attr = make([]xmlquery.Attr, len(n.Attr))
			copy(out.Attr, n.Attr)
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.ElementNode, xmlquery.TextNode, xmlquery.CharDataNode:
			xmlquery.AddChild(out, Copy(child, prefix))
		default:
		}
	}

	return out
}

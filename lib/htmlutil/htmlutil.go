package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func walkText(node *html.Node, visit func(text string)) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		visit(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		walkText(child, visit)
	}
}

// GetText concatenates every text node under node, unmodified.
func GetText(node *html.Node) string {
	var out strings.Builder
	walkText(node, func(text string) {
		out.WriteString(text)
	})
	return out.String()
}

// GetStrippedText trims every text node under node and joins the
// non-empty pieces with no separator.
//
// "<td> 3 <br/> 學分 </td>" -> "3學分"
func GetStrippedText(node *html.Node) string {
	var out strings.Builder
	walkText(node, func(text string) {
		out.WriteString(strings.TrimSpace(text))
	})
	return out.String()
}

// StrippedText is GetStrippedText over every node of the selection.
func StrippedText(sel *goquery.Selection) string {
	var out strings.Builder
	for _, n := range sel.Nodes {
		out.WriteString(GetStrippedText(n))
	}
	return out.String()
}

// FirstContaining returns the first node in sel whose full text contains
// substr, or an empty selection.
func FirstContaining(sel *goquery.Selection, substr string) *goquery.Selection {
	for i, n := range sel.Nodes {
		if strings.Contains(GetText(n), substr) {
			return sel.Eq(i)
		}
	}
	return sel.Slice(0, 0)
}

package swaggerui

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Document is the hosting page as seen by the Bootstrapper.
type Document interface {
	ElementByID(id string) (Element, bool)
}

// Element is a single element of a Document.
type Element interface {
	Attr(name string) (string, bool)
}

// ParseDocument parses hosting page markup.
func ParseDocument(r io.Reader) (Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return &markupDocument{root: root}, nil
}

type markupDocument struct {
	root *html.Node
}

func (d *markupDocument) ElementByID(id string) (Element, bool) {
	n := findByID(d.root, id)
	if n == nil {
		return nil, false
	}
	return markupElement{n}, true
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		if v, ok := attr(n, "id"); ok && v == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

type markupElement struct {
	n *html.Node
}

func (e markupElement) Attr(name string) (string, bool) {
	return attr(e.n, strings.ToLower(name))
}

// Copyright 2025 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bgg

import (
	"bytes"
	"io"
	"slices"
	"strings"

	"github.com/juju/errors"
	"golang.org/x/net/html"
)

// Node wraps a parsed HTML element. The zero Node stands for a missing element: its
// lookups return zero values instead of failing.
type Node struct {
	n *html.Node
}

// ParseHTML parses an HTML document and returns its root.
func ParseHTML(r io.Reader) (Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Node{}, errors.Trace(err)
	}
	return Node{doc}, nil
}

// Exists reports whether the node refers to an element.
func (node Node) Exists() bool {
	return node.n != nil
}

// Name returns the tag name.
func (node Node) Name() string {
	if node.n == nil {
		return ""
	}
	return node.n.Data
}

// Children returns the element children.
func (node Node) Children() []Node {
	if node.n == nil {
		return nil
	}
	var children []Node
	for c := range node.n.ChildNodes() {
		if c.Type == html.ElementNode {
			children = append(children, Node{c})
		}
	}
	return children
}

// Find returns the first child element named name.
func (node Node) Find(name string) Node {
	for _, c := range node.Children() {
		if c.n.Data == name {
			return c
		}
	}
	return Node{}
}

// Select returns the child elements named name.
func (node Node) Select(name string) []Node {
	var selected []Node
	for _, c := range node.Children() {
		if c.n.Data == name {
			selected = append(selected, c)
		}
	}
	return selected
}

// Attr returns the value of an attribute, or an empty string.
func (node Node) Attr(name string) string {
	if node.n == nil {
		return ""
	}
	for _, attr := range node.n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

// HasClass reports whether class is listed in the class attribute.
func (node Node) HasClass(class string) bool {
	return slices.Contains(strings.Fields(node.Attr("class")), class)
}

// Descendants returns the descendant elements matching pred in document order.
func (node Node) Descendants(pred func(Node) bool) []Node {
	if node.n == nil {
		return nil
	}
	var found []Node
	for d := range node.n.Descendants() {
		if d.Type == html.ElementNode && pred(Node{d}) {
			found = append(found, Node{d})
		}
	}
	return found
}

// First returns the first descendant element matching pred.
func (node Node) First(pred func(Node) bool) Node {
	if node.n == nil {
		return Node{}
	}
	for d := range node.n.Descendants() {
		if d.Type == html.ElementNode && pred(Node{d}) {
			return Node{d}
		}
	}
	return Node{}
}

// Text returns the concatenated text content.
func (node Node) Text() string {
	if node.n == nil {
		return ""
	}
	var builder strings.Builder
	for d := range node.n.Descendants() {
		if d.Type == html.TextNode {
			builder.WriteString(d.Data)
		}
	}
	return builder.String()
}

// InnerHTML renders the children of the node.
func (node Node) InnerHTML() string {
	if node.n == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := range node.n.ChildNodes() {
		if err := html.Render(&buf, c); err != nil {
			return buf.String()
		}
	}
	return buf.String()
}

// ByClass matches elements with class.
func ByClass(class string) func(Node) bool {
	return func(node Node) bool {
		return node.HasClass(class)
	}
}

// ByName matches elements named name.
func ByName(name string) func(Node) bool {
	return func(node Node) bool {
		return node.Name() == name
	}
}

package manifest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"unicode/utf8"
)

// XML namespaces of the config.xml vocabulary.
const (
	NamespaceWidgets = "http://www.w3.org/ns/widgets"
	NamespaceCordova = "http://cordova.apache.org/ns/1.0"
	NamespaceGap     = "http://phonegap.com/ns/1.0"
)

const rootElement = "widget"

// node is the minimal element tree used for both directions of the mapping.
type node struct {
	space    string
	local    string
	attrs    []xml.Attr
	children []*node
	text     string
}

func newNode(name string, attrs ...xml.Attr) *node {
	return &node{local: name, attrs: attrs}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// setAttr appends the attribute when value is non-empty.
func (n *node) setAttr(name, value string) {
	if value == "" {
		return
	}
	n.attrs = append(n.attrs, attr(name, value))
}

func (n *node) add(child *node) *node {
	n.children = append(n.children, child)
	return child
}

// attr returns the value of an unqualified attribute.
func (n *node) attr(name string) string {
	for _, a := range n.attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// inNamespace matches elements in ns. Unqualified elements count as the
// widgets namespace; an undeclared prefix is compared by its literal name.
func (n *node) inNamespace(ns string) bool {
	switch ns {
	case NamespaceWidgets:
		return n.space == NamespaceWidgets || n.space == ""
	case NamespaceGap:
		return n.space == NamespaceGap || n.space == "gap"
	case NamespaceCordova:
		return n.space == NamespaceCordova || n.space == "cdv"
	}
	return n.space == ns
}

// find returns the direct children with the given qualified name.
func (n *node) find(ns, local string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.local == local && c.inNamespace(ns) {
			out = append(out, c)
		}
	}
	return out
}

func (n *node) first(ns, local string) *node {
	found := n.find(ns, local)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// parseTree decodes r into an element tree.
func parseTree(r io.Reader) (*node, error) {
	decoder := xml.NewDecoder(r)

	var stack []*node
	var root *node

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("unexpected element %s after document end", t.Name.Local)
			}
			el := &node{space: t.Name.Space, local: t.Name.Local, attrs: t.Attr}
			if len(stack) > 0 {
				stack[len(stack)-1].add(el)
			} else {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}

	if root == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return root, nil
}

// writeTree encodes the tree with an XML declaration and indentation.
func writeTree(root *node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")

	if err := encodeNode(enc, root); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeNode(enc *xml.Encoder, n *node) error {
	for _, a := range n.attrs {
		if err := checkChars(a.Value); err != nil {
			return fmt.Errorf("attribute %s of <%s>: %w", a.Name.Local, n.local, err)
		}
	}
	if err := checkChars(n.text); err != nil {
		return fmt.Errorf("text of <%s>: %w", n.local, err)
	}
	start := xml.StartElement{Name: xml.Name{Local: n.local}, Attr: n.attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.text != "" {
		if err := enc.EncodeToken(xml.CharData(n.text)); err != nil {
			return err
		}
	}
	for _, c := range n.children {
		if err := encodeNode(enc, c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// checkChars rejects text that XML 1.0 cannot carry. encoding/xml would
// replace such characters with U+FFFD.
func checkChars(s string) error {
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				return fmt.Errorf("invalid UTF-8 at byte %d", i)
			}
		}
		if !isXMLChar(r) {
			return fmt.Errorf("character %U at byte %d is not allowed in XML", r, i)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

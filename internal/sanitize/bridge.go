// Package sanitize prepares the HTML entry point for packaging.
package sanitize

import (
	"bytes"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
)

// BridgeScript is the platform bridge injected into the entry point.
const BridgeScript = "cordova.js"

// EnsureBridgeScript makes sure the HTML document at htmlPath references the
// bridge script. It reports whether the file was modified; a document that
// already references the script is left untouched.
func EnsureBridgeScript(htmlPath string) (bool, error) {
	data, err := os.ReadFile(filepath.Clean(htmlPath))
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryFileSystem, "failed to read HTML entry point").
			WithContext("path", htmlPath).
			Build()
	}

	out, changed, err := InjectBridgeScript(data)
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML entry point").
			WithContext("path", htmlPath).
			Build()
	}
	if !changed {
		return false, nil
	}

	if err := os.WriteFile(htmlPath, out, 0o644); err != nil {
		return false, errors.WrapError(err, errors.CategoryFileSystem, "failed to write HTML entry point").
			WithContext("path", htmlPath).
			Build()
	}
	return true, nil
}

// InjectBridgeScript returns the document with a bridge script element
// appended to <head>, or the input unchanged when a reference exists.
func InjectBridgeScript(src []byte) ([]byte, bool, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, false, err
	}
	if hasBridgeScript(doc) {
		return src, false, nil
	}

	head := findElement(doc, atom.Head)
	if head == nil {
		return nil, false, errors.NewError(errors.CategoryValidation, "HTML document has no head element").Build()
	}
	script := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Script,
		Data:     "script",
		Attr: []html.Attribute{
			{Key: "type", Val: "text/javascript"},
			{Key: "src", Val: BridgeScript},
		},
	}
	head.AppendChild(script)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, false, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), true, nil
}

func hasBridgeScript(n *html.Node) bool {
	if n.Type == html.ElementNode && n.DataAtom == atom.Script {
		for _, a := range n.Attr {
			if a.Key == "src" && isBridgeRef(a.Val) {
				return true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasBridgeScript(c) {
			return true
		}
	}
	return false
}

func isBridgeRef(src string) bool {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	return path.Base(strings.TrimSpace(src)) == BridgeScript
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

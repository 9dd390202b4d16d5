// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrCharsetMismatch is returned when decoded text carries replacement characters.
var ErrCharsetMismatch = errors.New("charset mismatch")

// Node2string concatenates the trimmed text nodes below n, separated by a space.
func Node2string(n *html.Node, sb *strings.Builder) (err error) {
	if n.Type == html.TextNode {
		tmp := strings.Join(strings.Fields(n.Data), " ")

		// a REPLACEMENT CHARACTER (U+FFFD) means that we are reading the
		// document with the wrong charset
		if strings.ContainsRune(tmp, utf8.RuneError) {
			return fmt.Errorf("%w: `%s'", ErrCharsetMismatch, tmp)
		}

		if len(tmp) > 0 {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(tmp)
		}

		return nil
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err = Node2string(child, sb); err != nil {
			break
		}
	}

	return err
}

// Attr returns the value of the attribute key, if present.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

// HasClass reports whether n is an element carrying the CSS class.
func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}

	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}

	return false
}

// FindAll walks the tree below n in document order, collecting the nodes
// accepted by match. Matched nodes are not descended into.
func FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var ret []*html.Node

	var visit func(*html.Node)

	visit = func(n *html.Node) {
		if match(n) {
			ret = append(ret, n)

			return
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)

	return ret
}

// FindFirst returns the first node accepted by match, or nil.
func FindFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if ret := FindFirst(child, match); ret != nil {
			return ret
		}
	}

	return nil
}

// Element returns a matcher for elements with the given tag and, optionally, class.
func Element(tag, class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || !strings.EqualFold(n.Data, tag) {
			return false
		}

		return class == "" || HasClass(n, class)
	}
}

// Validates that response seems to be an HTML response.
func hasHTMLContentType(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader converts an HTTP response body to an io.Reader with the correct charset.
func AsReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	media := resp.Header.Get("Content-Type")
	if !hasHTMLContentType(media) {
		return nil, fmt.Errorf("media type is %s", media)
	}

	rr, err := charset.NewReader(resp.Body, media)
	if err != nil {
		return nil, err
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if nil != err {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}

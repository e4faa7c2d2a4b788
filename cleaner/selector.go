package cleaner

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// unsafeElements never survive sanitizing.
var unsafeElements = cascadia.MustCompile("script, style, iframe, object, embed, noscript, link, meta, form, frame, frameset")

// Sanitize parses rawHTML, removes active content (scripts, frames, embeds,
// inline event handlers and javascript: URLs) and returns the rendered body.
func Sanitize(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	for _, node := range cascadia.QueryAll(doc, unsafeElements) {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
	stripAttributes(doc)

	body := cascadia.Query(doc, cascadia.MustCompile("body"))
	if body == nil {
		body = doc
	}

	var buf bytes.Buffer
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&buf, child); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func stripAttributes(n *html.Node) {
	if n.Type == html.ElementNode && len(n.Attr) > 0 {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if strings.HasPrefix(key, "on") {
				continue
			}
			if (key == "href" || key == "src") && isScriptURL(a.Val) {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		stripAttributes(c)
	}
}

func isScriptURL(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:")
}

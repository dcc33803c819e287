package svg

import (
	"bytes"
	"errors"
	"regexp"
)

var ErrNotSVG = errors.New("not an svg document")

// Each rule removes one class of active content. Rules run in order, so
// element rules come before attribute rules.
var rules = []*regexp.Regexp{
	// DOCTYPE with an internal subset can declare external entities.
	regexp.MustCompile(`(?is)<!DOCTYPE[^>\[]*(\[.*?\])?\s*>`),
	regexp.MustCompile(`(?is)<\s*(script|foreignObject|iframe|embed|object)[\s>].*?<\s*/\s*(script|foreignObject|iframe|embed|object)\s*>`),
	regexp.MustCompile(`(?is)<\s*(script|iframe|embed|object)\b[^>]*/\s*>`),
	regexp.MustCompile(`(?is)\son[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`),
	regexp.MustCompile(`(?is)\s(xlink:)?href\s*=\s*("\s*(javascript|data:text/html)[^"]*"|'\s*(javascript|data:text/html)[^']*')`),
}

var rootPattern = regexp.MustCompile(`(?is)^\s*(<\?xml[^>]*>\s*)?(<!--.*?-->\s*)*(<!DOCTYPE[^>\[]*(\[.*?\])?\s*>\s*)?<svg[\s>/]`)

// Sanitize scrubs an SVG avatar before it is stored. The document must start
// with an <svg> root, optionally after an XML declaration, comments or a
// DOCTYPE.
func Sanitize(input []byte) ([]byte, error) {
	if !rootPattern.Match(input) {
		return nil, ErrNotSVG
	}

	clean := input
	for _, rule := range rules {
		clean = rule.ReplaceAll(clean, nil)
	}
	return bytes.TrimSpace(clean), nil
}

// Package transform runs the concatenated stylesheet through a minifier.
package transform

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
)

const mediaTypeCSS = "text/css"

// Minifier turns stylesheet text into its minified form.
type Minifier interface {
	Minify(cssText string) (string, error)
}

// TransformError is returned when the minifier rejects its input. Offset
// is the byte offset into the input where the problem was found, when known.
type TransformError struct {
	Message string
	Offset  int
	Err     error
}

func (e *TransformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transform failed: %s: %v", e.Message, e.Err)
	}
	return "transform failed: " + e.Message
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// CSSMinifier minifies with tdewolff/minify. It only removes whitespace and
// comments and shortens values; rules, declarations and media queries keep
// their source order because the stylesheet relies on cascade order.
type CSSMinifier struct {
	m *minify.M
}

// NewCSSMinifier returns a ready-to-use CSS minifier.
func NewCSSMinifier() *CSSMinifier {
	m := minify.New()
	m.Add(mediaTypeCSS, &css.Minifier{KeepCSS2: true})
	return &CSSMinifier{m: m}
}

// Minify implements Minifier. Malformed input is rejected before
// minification because the minifier itself recovers from syntax errors.
func (c *CSSMinifier) Minify(cssText string) (string, error) {
	if err := checkSyntax(cssText); err != nil {
		return "", err
	}
	out, err := c.m.String(mediaTypeCSS, cssText)
	if err != nil {
		return "", &TransformError{Message: "css minification rejected input", Err: err}
	}
	return out, nil
}

// Func adapts a plain function to the Minifier interface. Errors that are
// not already a *TransformError are wrapped into one.
type Func func(cssText string) (string, error)

// Minify implements Minifier.
func (f Func) Minify(cssText string) (string, error) {
	out, err := f(cssText)
	if err == nil {
		return out, nil
	}
	if te, ok := err.(*TransformError); ok {
		return "", te
	}
	return "", &TransformError{Message: err.Error(), Err: err}
}

package transform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

const invalidCSS = "invalid css"

// checkSyntax rejects stylesheets the minifier would otherwise repair in
// silence: unbalanced blocks, brackets and parentheses, unterminated
// strings, comments and url() tokens, and grammar errors reported by the
// CSS parser.
func checkSyntax(cssText string) error {
	if err := checkTokens(cssText); err != nil {
		return err
	}
	return checkGrammar(cssText)
}

type opener struct {
	b      byte
	offset int
}

var closerOf = map[css.TokenType]byte{
	css.RightBraceToken:       '{',
	css.RightBracketToken:     '[',
	css.RightParenthesisToken: '(',
}

func checkTokens(cssText string) error {
	l := css.NewLexer(parse.NewInputString(cssText))
	var stack []opener
	offset := 0
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			if err := l.Err(); err != io.EOF {
				return syntaxError(cssText, offset, fmt.Sprintf("unexpected byte %q", cssText[offset:min(offset+1, len(cssText))]))
			}
			if n := len(stack); n > 0 {
				o := stack[n-1]
				return syntaxError(cssText, o.offset, fmt.Sprintf("unclosed '%c'", o.b))
			}
			return nil
		case css.LeftBraceToken:
			stack = append(stack, opener{'{', offset})
		case css.LeftBracketToken:
			stack = append(stack, opener{'[', offset})
		case css.LeftParenthesisToken, css.FunctionToken:
			stack = append(stack, opener{'(', offset + len(data) - 1})
		case css.RightBraceToken, css.RightBracketToken, css.RightParenthesisToken:
			n := len(stack)
			if n == 0 || stack[n-1].b != closerOf[tt] {
				return syntaxError(cssText, offset, fmt.Sprintf("unexpected '%s'", data))
			}
			stack = stack[:n-1]
		case css.BadStringToken:
			return syntaxError(cssText, offset, "string broken by a newline")
		case css.StringToken:
			if !terminated(data) {
				return syntaxError(cssText, offset, "unterminated string")
			}
		case css.BadURLToken:
			return syntaxError(cssText, offset, "malformed url()")
		case css.URLToken:
			if !bytes.HasSuffix(data, []byte(")")) {
				return syntaxError(cssText, offset, "unterminated url()")
			}
		case css.CommentToken:
			if len(data) < 4 || !bytes.HasSuffix(data, []byte("*/")) {
				return syntaxError(cssText, offset, "unterminated comment")
			}
		}
		offset += len(data)
	}
}

func checkGrammar(cssText string) error {
	p := css.NewParser(parse.NewInputString(cssText), false)
	for {
		gt, _, _ := p.Next()
		if gt != css.ErrorGrammar {
			continue
		}
		if p.HasParseError() {
			return &TransformError{Message: invalidCSS, Offset: p.Offset(), Err: p.Err()}
		}
		if err := p.Err(); !errors.Is(err, io.EOF) {
			return &TransformError{Message: invalidCSS, Offset: p.Offset(), Err: err}
		}
		return nil
	}
}

// terminated reports whether a quoted string token ends with an unescaped
// copy of its opening quote.
func terminated(s []byte) bool {
	if len(s) < 2 || s[len(s)-1] != s[0] {
		return false
	}
	escapes := 0
	for i := len(s) - 2; i > 0 && s[i] == '\\'; i-- {
		escapes++
	}
	return escapes%2 == 0
}

func syntaxError(cssText string, offset int, msg string) *TransformError {
	return &TransformError{
		Message: invalidCSS,
		Offset:  offset,
		Err:     parse.NewError(strings.NewReader(cssText), offset, msg),
	}
}

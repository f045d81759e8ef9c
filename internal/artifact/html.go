package artifact

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// rewriteStylesheetLink points every <link> whose href equals from at to
// instead. Only the href value bytes change; the rest of the document is
// copied through untouched. It returns the document and the number of links
// rewritten.
func rewriteStylesheetLink(src []byte, from, to string) ([]byte, int, error) {
	z := html.NewTokenizer(bytes.NewReader(src))
	var out bytes.Buffer
	out.Grow(len(src))
	rewritten := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return nil, 0, err
			}
			return out.Bytes(), rewritten, nil
		}
		raw := append([]byte(nil), z.Raw()...)
		if (tt == html.StartTagToken || tt == html.SelfClosingTagToken) && hrefMatches(z, from) {
			if start, end, quoted, ok := hrefSpan(raw); ok {
				value := html.EscapeString(to)
				if !quoted {
					value = `"` + value + `"`
				}
				out.Write(raw[:start])
				out.WriteString(value)
				out.Write(raw[end:])
				rewritten++
				continue
			}
		}
		out.Write(raw)
	}
}

// hrefMatches reports whether the current token is a link tag whose first
// href attribute decodes to want.
func hrefMatches(z *html.Tokenizer, want string) bool {
	name, more := z.TagName()
	if string(name) != "link" {
		return false
	}
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		if string(key) == "href" {
			return string(val) == want
		}
	}
	return false
}

// hrefSpan locates the value of the first href attribute in a raw start
// tag. quoted reports whether the span sits inside quotes.
func hrefSpan(tag []byte) (start, end int, quoted, ok bool) {
	i := 1
	for i < len(tag) && !isSpace(tag[i]) && tag[i] != '>' && tag[i] != '/' {
		i++
	}
	for i < len(tag) {
		for i < len(tag) && (isSpace(tag[i]) || tag[i] == '/') {
			i++
		}
		if i >= len(tag) || tag[i] == '>' {
			return 0, 0, false, false
		}
		nameStart := i
		for i < len(tag) && !isSpace(tag[i]) && tag[i] != '=' && tag[i] != '>' && tag[i] != '/' {
			i++
		}
		name := tag[nameStart:i]
		for i < len(tag) && isSpace(tag[i]) {
			i++
		}
		if i >= len(tag) || tag[i] != '=' {
			if bytes.EqualFold(name, []byte("href")) {
				return 0, 0, false, false
			}
			continue
		}
		i++
		for i < len(tag) && isSpace(tag[i]) {
			i++
		}
		if i >= len(tag) {
			return 0, 0, false, false
		}

		var vs, ve int
		q := tag[i]
		if q == '"' || q == '\'' {
			vs = i + 1
			j := bytes.IndexByte(tag[vs:], q)
			if j < 0 {
				return 0, 0, false, false
			}
			ve = vs + j
			i = ve + 1
		} else {
			vs = i
			for i < len(tag) && !isSpace(tag[i]) && tag[i] != '>' {
				i++
			}
			ve = i
		}
		if bytes.EqualFold(name, []byte("href")) {
			return vs, ve, q == '"' || q == '\'', true
		}
	}
	return 0, 0, false, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// stylesheetHrefs lists the href of every stylesheet link in src. It feeds
// the warning logged when no link matched.
func stylesheetHrefs(src []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(src))
	if err != nil {
		return nil
	}
	var hrefs []string
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.Fields(strings.ToLower(s.AttrOr("rel", "")))
		for _, r := range rel {
			if r == "stylesheet" {
				hrefs = append(hrefs, s.AttrOr("href", ""))
				break
			}
		}
	})
	return hrefs
}

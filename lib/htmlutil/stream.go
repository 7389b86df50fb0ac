package htmlutil

import (
	"bytes"
	"errors"
	"io"

	"golang.org/x/net/html"
)

// Handler receives the tag events of a markup stream. Tag names are lower
// case, text is passed through unmodified (entities are unescaped).
type Handler interface {
	StartTag(name string, attrs []html.Attribute)
	EndTag(name string)
	Text(text string)
}

// Feed tokenizes content and drives h with its events. A self closing tag
// produces a StartTag directly followed by an EndTag. Comments and doctypes
// are skipped. Both html and xml documents can be fed, tags of xml
// documents arrive lower cased as well.
func Feed(h Handler, content []byte) error {
	tokenizer := html.NewTokenizer(bytes.NewReader(content))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			err := tokenizer.Err()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			h.StartTag(token.Data, token.Attr)
			if tt == html.SelfClosingTagToken {
				h.EndTag(token.Data)
			}
		case html.EndTagToken:
			token := tokenizer.Token()
			h.EndTag(token.Data)
		case html.TextToken:
			h.Text(string(tokenizer.Text()))
		}
	}
}

package htmlutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

type eventLog struct {
	events []string
}

func (l *eventLog) StartTag(name string, attrs []html.Attribute) {
	var parts []string
	for _, a := range attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", a.Key, a.Val))
	}
	l.events = append(l.events, fmt.Sprintf("<%s %s>", name, strings.Join(parts, ",")))
}

func (l *eventLog) EndTag(name string) {
	l.events = append(l.events, fmt.Sprintf("</%s>", name))
}

func (l *eventLog) Text(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	l.events = append(l.events, text)
}

func TestFeed(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		expect  []string
	}{
		{
			name:    "table",
			content: `<TABLE class="results"><tr><td>a &amp; b</td><td><a href="?offset=20">next</a></td></tr></TABLE>`,
			expect: []string{
				"<table class=results>", "<tr >", "<td >", "a & b", "</td>",
				"<td >", "<a href=?offset=20>", "next", "</a>", "</td>", "</tr>", "</table>",
			},
		},
		{
			name:    "self closing and comments",
			content: `<!-- skipped --><p>one<br/>two</p>`,
			expect:  []string{"<p >", "one", "<br >", "</br>", "two", "</p>"},
		},
		{
			name:    "xml",
			content: `<?xml version="1.0"?><Badge><Resource Url="https://x/b.png">Gold</Resource></Badge>`,
			expect: []string{
				"<badge >", "<resource url=https://x/b.png>", "Gold", "</resource>", "</badge>",
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			log := &eventLog{}
			err := Feed(log, []byte(test.content))
			require.NoError(t, err)
			require.Empty(t, cmp.Diff(test.expect, log.events))
		})
	}
}

func TestAttr(t *testing.T) {
	attrs := []html.Attribute{{Key: "class", Val: "Results table"}, {Key: "id", Val: "main"}}

	val, ok := Attr(attrs, "id")
	require.True(t, ok)
	require.Equal(t, "main", val)

	_, ok = Attr(attrs, "href")
	require.False(t, ok)
	require.Equal(t, "none", AttrOr(attrs, "href", "none"))
	require.Equal(t, "main", AttrOr(nil, "id", "main"))

	require.True(t, AttrContains(attrs, "class", "results"))
	require.False(t, AttrContains(attrs, "href", "results"))
}

package services

import (
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// ExcerptLength is the target excerpt size, the usual meta-description length.
const ExcerptLength = 160

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
)

func sentenceTokenizer() *sentences.DefaultSentenceTokenizer {
	tokenizerOnce.Do(func() {
		t, err := english.NewSentenceTokenizer(nil)
		if err != nil {
			log.Warnf("Failed to load sentence tokenizer, excerpts fall back to word cuts: %v", err)
			return
		}
		tokenizer = t
	})
	return tokenizer
}

// BuildExcerpt derives a plain-text excerpt from HTML content. Whole
// sentences are taken while they fit in maxLen; if even the first sentence
// is longer, it is cut at a word boundary and ends with "...".
func BuildExcerpt(content string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = ExcerptLength
	}
	text := HTMLToText(content)
	if text == "" {
		return ""
	}
	if len(text) <= maxLen {
		return text
	}

	var sents []string
	if tok := sentenceTokenizer(); tok != nil {
		for _, s := range tok.Tokenize(text) {
			if t := strings.TrimSpace(s.Text); t != "" {
				sents = append(sents, t)
			}
		}
	}

	var b strings.Builder
	for _, s := range sents {
		extra := len(s)
		if b.Len() > 0 {
			extra++
		}
		if b.Len()+extra > maxLen {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	if b.Len() > 0 {
		return b.String()
	}
	return cutWords(text, maxLen)
}

func cutWords(text string, maxLen int) string {
	const ellipsis = "..."
	limit := maxLen - len(ellipsis)
	var b strings.Builder
	for _, w := range strings.Fields(text) {
		extra := len(w)
		if b.Len() > 0 {
			extra++
		}
		if b.Len()+extra > limit {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	return b.String() + ellipsis
}

// HTMLToText extracts the visible text of an HTML fragment, collapsing
// whitespace. Script and style contents are skipped.
func HTMLToText(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return strings.Join(strings.Fields(content), " ")
	}

	skip := map[string]bool{"script": true, "style": true, "noscript": true, "head": true}
	block := map[string]bool{
		"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"blockquote": true, "section": true, "article": true, "tr": true, "td": true,
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skip[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		isBlock := n.Type == html.ElementNode && block[n.Data]
		if isBlock {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if isBlock {
			b.WriteByte(' ')
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(b.String()), " ")
}

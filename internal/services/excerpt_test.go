package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	got := HTMLToText(`<h2>Intro</h2><p>Hello <strong>world</strong>.</p><script>var x = 1;</script><ul><li>one</li><li>two</li></ul>`)
	assert.Equal(t, "Intro Hello world. one two", got)
}

func TestBuildExcerpt_ShortContentIsKept(t *testing.T) {
	assert.Equal(t, "Short and sweet.", BuildExcerpt("<p>Short and sweet.</p>", 160))
	assert.Equal(t, "", BuildExcerpt("<p> </p>", 160))
}

func TestBuildExcerpt_StopsAtLimit(t *testing.T) {
	para := strings.Repeat("This sentence is about forty characters. ", 10)
	got := BuildExcerpt("<p>"+para+"</p>", 160)

	assert.LessOrEqual(t, len(got), 160)
	assert.NotEmpty(t, got)
	assert.True(t, strings.HasPrefix(got, "This sentence"))
	assert.NotContains(t, got, "<")
}

func TestBuildExcerpt_LongSingleSentence(t *testing.T) {
	got := BuildExcerpt(strings.Repeat("word ", 100), 50)

	assert.LessOrEqual(t, len(got), 50)
	assert.True(t, strings.HasSuffix(got, "..."))
}

package chunk

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHeadingSections(t *testing.T) {
	c := New()

	title, chunks := c.Split("# Title\n\nintro\n\n## A\n\nbody A\n\n## B\n\nbody B")

	assert.Equal(t, "Title", title)
	require.Len(t, chunks, 2)
	assert.Equal(t, Chunk{Title: "A", Content: "intro\n\nbody A"}, chunks[0])
	assert.Equal(t, Chunk{Title: "B", Content: "body B"}, chunks[1])
}

func TestSplitEmptyInput(t *testing.T) {
	c := New()

	title, chunks := c.Split("")
	assert.Empty(t, title)
	assert.Empty(t, chunks)

	title, chunks = c.Split("   \n\n\t  ")
	assert.Empty(t, title)
	assert.Empty(t, chunks)
}

func TestSplitTitleOnlyDocument(t *testing.T) {
	c := New()

	title, chunks := c.Split("# Guide\n\nEverything lives under the single heading of this document.")

	assert.Equal(t, "Guide", title)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Guide", chunks[0].Title)
	assert.Equal(t, "Everything lives under the single heading of this document.", chunks[0].Content)
}

func TestSplitH1NotOnFirstLineIsBoundary(t *testing.T) {
	c := New()

	title, chunks := c.Split("preamble text\n\n# Later Heading\n\nbody")

	assert.Empty(t, title)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Later Heading", chunks[0].Title)
	assert.Equal(t, "preamble text\n\nbody", chunks[0].Content)
}

func TestSplitRespectsHeadingLevels(t *testing.T) {
	c := NewWithOptions(Options{HeadingLevels: []int{1, 2}})

	_, chunks := c.Split("## Top\n\nabove\n\n### Deep\n\nbelow")

	require.Len(t, chunks, 1)
	assert.Equal(t, "Top", chunks[0].Title)
	// The level-3 heading stays inside the body.
	assert.Contains(t, chunks[0].Content, "### Deep")
	assert.Contains(t, chunks[0].Content, "below")
}

func TestSplitOversizedSectionParts(t *testing.T) {
	c := NewWithOptions(Options{TargetChars: 100, OverlapChars: 20})

	sentence := "This sentence pads the section body out to a useful length. "
	body := strings.Repeat(sentence, 6)
	_, chunks := c.Split("## Long\n\n" + body)

	require.Greater(t, len(chunks), 1)
	assert.Equal(t, "Long", chunks[0].Title)
	for i, ch := range chunks[1:] {
		assert.Equal(t, fmt.Sprintf("Long (Part %d)", i+2), ch.Title)
	}
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), 100)
		assert.GreaterOrEqual(t, utf8.RuneCountInString(ch.Content), minChunkChars)
	}
}

func TestSplitCutsAtSentenceEnd(t *testing.T) {
	c := NewWithOptions(Options{TargetChars: 100, OverlapChars: 20})

	// 30-char sentences put a period inside the last 20% of the first
	// 100-char window.
	text := strings.Repeat("This tiny sentence ends here. ", 8)
	pieces := c.sizePieces(text)

	require.NotEmpty(t, pieces)
	assert.True(t, strings.HasSuffix(pieces[0], "."), "first piece should end at a sentence: %q", pieces[0])
}

func TestSplitNoHeadingsSynthesizesTitles(t *testing.T) {
	c := NewWithOptions(Options{TargetChars: 100, OverlapChars: 20})

	text := strings.Repeat("Plain prose with sentences. More follows after that one. ", 5)
	_, chunks := c.Split(text)

	require.NotEmpty(t, chunks)
	assert.Equal(t, "Plain prose with sentences.", chunks[0].Title)
	for _, ch := range chunks {
		assert.NotEmpty(t, ch.Title)
	}
}

func TestSynthesizeTitle(t *testing.T) {
	assert.Equal(t, "Inner", synthesizeTitle("before\n## Inner\nafter", 1))

	long := strings.Repeat("word ", 30) + "ends."
	got := synthesizeTitle(long, 1)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, utf8.RuneCountInString(got), maxSynthesizedTitle+3)

	// No sentence terminator and no heading.
	assert.Equal(t, "Section 3", synthesizeTitle(strings.Repeat("word ", 20), 3))
}

func TestSplitDiscardsTinyFragments(t *testing.T) {
	c := NewWithOptions(Options{TargetChars: 100, OverlapChars: 10})

	// 100 chars of prose then a tiny tail that cannot stand alone.
	text := strings.Repeat("x", 95) + ". tail"
	pieces := c.sizePieces(text)

	for _, p := range pieces {
		assert.GreaterOrEqual(t, utf8.RuneCountInString(p), minChunkChars)
	}
}

func TestSplitIdempotentOnRejoinedContent(t *testing.T) {
	c := New()

	text := "Plain heading-less prose that easily fits inside a single chunk and so survives rechunking unchanged."
	_, first := c.Split(text)
	require.Len(t, first, 1)

	_, second := c.Split(first[0].Content)
	assert.Equal(t, first, second)
}

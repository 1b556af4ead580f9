// Package chunk splits markdown documents into titled, size-bounded
// sections. The chunker is a pure function over text; it never touches
// storage or embeddings.
package chunk

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultTargetChars is the character budget per chunk.
	DefaultTargetChars = 2000
	// DefaultOverlapChars is the overlap carried between size-split chunks.
	DefaultOverlapChars = 200

	// minChunkChars discards fragments too small to be useful retrieval units.
	minChunkChars = 50
	// minStepChars bounds the overlap rewind so the cursor always advances.
	minStepChars = 50
	// maxSynthesizedTitle truncates sentence-derived titles.
	maxSynthesizedTitle = 100
)

// headingPattern matches ATX headings of any level.
var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

// Chunk is one titled slice of a document.
type Chunk struct {
	Title   string
	Content string
}

// Options configures the chunker.
type Options struct {
	TargetChars   int   // character budget per chunk (default: DefaultTargetChars)
	OverlapChars  int   // overlap between size-split chunks (default: DefaultOverlapChars)
	HeadingLevels []int // heading levels that open a new chunk (default: 1, 2, 3)
}

// Chunker splits markdown by headings, falling back to size-based
// splitting for heading-less text and oversized sections.
type Chunker struct {
	target  int
	overlap int
	levels  map[int]bool
}

// New creates a chunker with default options.
func New() *Chunker {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a chunker with custom options.
func NewWithOptions(opts Options) *Chunker {
	if opts.TargetChars <= 0 {
		opts.TargetChars = DefaultTargetChars
	}
	if opts.OverlapChars <= 0 {
		opts.OverlapChars = DefaultOverlapChars
	}
	if opts.OverlapChars >= opts.TargetChars {
		opts.OverlapChars = opts.TargetChars / 10
	}
	if len(opts.HeadingLevels) == 0 {
		opts.HeadingLevels = []int{1, 2, 3}
	}
	levels := make(map[int]bool, len(opts.HeadingLevels))
	for _, l := range opts.HeadingLevels {
		levels[l] = true
	}
	return &Chunker{target: opts.TargetChars, overlap: opts.OverlapChars, levels: levels}
}

type rawSection struct {
	title string
	body  []string
}

// Split chunks a markdown document. It returns the document title taken
// from a first-line H1 (empty when absent) and the ordered chunk set.
func (c *Chunker) Split(markdown string) (string, []Chunk) {
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}

	var (
		docTitle  string
		intro     []string
		sections  []rawSection
		seenFirst bool
	)
	cur := -1

	for _, line := range lines(markdown) {
		m := headingPattern.FindStringSubmatch(line)
		level := 0
		if m != nil {
			level = len(m[1])
		}

		// A level-1 heading on the very first non-empty line is the
		// document title, not a chunk boundary.
		if !seenFirst && strings.TrimSpace(line) != "" {
			seenFirst = true
			if level == 1 {
				docTitle = strings.TrimSpace(m[2])
				continue
			}
		}

		if m != nil && c.levels[level] {
			sections = append(sections, rawSection{title: strings.TrimSpace(m[2])})
			cur = len(sections) - 1
			continue
		}

		if cur >= 0 {
			sections[cur].body = append(sections[cur].body, line)
		} else {
			intro = append(intro, line)
		}
	}

	introText := strings.TrimSpace(strings.Join(intro, "\n"))

	if len(sections) == 0 {
		if introText == "" {
			return docTitle, nil
		}
		if docTitle != "" {
			// No further headings: the intro stands alone under the H1.
			return docTitle, c.emit(docTitle, introText)
		}
		return docTitle, c.splitBySizeSynthesized(introText)
	}

	var chunks []Chunk
	for i, sec := range sections {
		body := strings.TrimSpace(strings.Join(sec.body, "\n"))
		if i == 0 && introText != "" {
			if body == "" {
				body = introText
			} else {
				body = introText + "\n\n" + body
			}
		}
		chunks = append(chunks, c.emit(sec.title, body)...)
	}
	return docTitle, chunks
}

// emit yields a single chunk, or splits it by size when the body exceeds
// 1.5x the target budget.
func (c *Chunker) emit(title, body string) []Chunk {
	if body == "" {
		return nil
	}
	if utf8.RuneCountInString(body) <= c.target+c.target/2 {
		return []Chunk{{Title: title, Content: body}}
	}

	var out []Chunk
	for i, piece := range c.sizePieces(body) {
		t := title
		if i > 0 {
			t = fmt.Sprintf("%s (Part %d)", title, i+1)
		}
		out = append(out, Chunk{Title: t, Content: piece})
	}
	return out
}

// splitBySizeSynthesized size-splits heading-less text, synthesizing a
// title per piece from its first internal heading, its first sentence,
// or a positional fallback.
func (c *Chunker) splitBySizeSynthesized(text string) []Chunk {
	var out []Chunk
	for i, piece := range c.sizePieces(text) {
		out = append(out, Chunk{Title: synthesizeTitle(piece, i+1), Content: piece})
	}
	return out
}

// sizePieces advances a cursor over the text emitting windows of at most
// target characters, cutting at a sentence end within the last 20% of the
// window when one exists, then rewinding by the overlap. Fragments below
// the minimum size are dropped.
func (c *Chunker) sizePieces(text string) []string {
	runes := []rune(text)
	var pieces []string

	pos := 0
	for pos < len(runes) {
		end := pos + c.target
		if end >= len(runes) {
			end = len(runes)
		} else if cut := sentenceCut(runes, pos, end); cut > pos {
			end = cut
		}

		piece := strings.TrimSpace(string(runes[pos:end]))
		if utf8.RuneCountInString(piece) >= minChunkChars {
			pieces = append(pieces, piece)
		}

		if end >= len(runes) {
			break
		}
		next := end - c.overlap
		if next < pos+minStepChars {
			next = pos + minStepChars
		}
		pos = next
	}
	return pieces
}

// sentenceCut finds the position just past the last sentence-ending
// character within the final 20% of the window, or 0 when none exists.
func sentenceCut(runes []rune, pos, end int) int {
	window := end - pos
	floor := end - window/5
	if floor < pos {
		floor = pos
	}
	for i := end - 1; i >= floor; i-- {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	return 0
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// synthesizeTitle derives a title for a size-split piece: the first
// internal heading, else the first sentence truncated with an ellipsis,
// else "Section N".
func synthesizeTitle(piece string, n int) string {
	for _, line := range lines(piece) {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[2])
		}
	}

	runes := []rune(piece)
	for i, r := range runes {
		if !isSentenceEnd(r) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[:i+1]))
		if sentence == "" {
			break
		}
		if utf8.RuneCountInString(sentence) > maxSynthesizedTitle {
			sentence = string([]rune(sentence)[:maxSynthesizedTitle]) + "..."
		}
		return sentence
	}
	return fmt.Sprintf("Section %d", n)
}

func lines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paragraphOfWords(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestSplitIntoChunksAccumulatesParagraphs(t *testing.T) {
	// Three 100-word paragraphs: the first two reach the 200 minimum
	// together, the third remains as the trailing chunk.
	text := strings.Join([]string{
		paragraphOfWords(100),
		paragraphOfWords(100),
		paragraphOfWords(100),
	}, "\n\n")

	chunks := SplitIntoChunks(text, 200, 500)
	require.Len(t, chunks, 2)
	assert.Equal(t, 200, len(strings.Fields(chunks[0])))
	assert.Equal(t, 100, len(strings.Fields(chunks[1])))
}

func TestSplitIntoChunksLongParagraph(t *testing.T) {
	// One paragraph of 60 ten-word sentences (600 words) must be split on
	// sentence boundaries.
	sentence := "one two three four five six seven eight nine ten."
	text := strings.TrimSpace(strings.Repeat(sentence+" ", 60))

	chunks := SplitIntoChunks(text, 200, 500)
	require.NotEmpty(t, chunks)
	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(strings.Fields(chunk)), 510)
	}
}

func TestSplitIntoChunksShortText(t *testing.T) {
	chunks := SplitIntoChunks("just a few words", 200, 500)
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a few words", chunks[0])
}

func TestAddChunkMarkers(t *testing.T) {
	text := paragraphOfWords(250)
	marked := AddChunkMarkers(text)
	assert.True(t, strings.HasPrefix(marked, "<chunk1>"))
	assert.True(t, strings.HasSuffix(marked, "</chunk1>"))
}

func TestAddChunkMarkersMultipleChunks(t *testing.T) {
	text := paragraphOfWords(250) + "\n\n" + paragraphOfWords(250)
	marked := AddChunkMarkers(text)
	assert.Contains(t, marked, "<chunk1>")
	assert.Contains(t, marked, "<chunk2>")
	assert.Contains(t, marked, "</chunk2>")
}

func TestAddChunkMarkersEmptyText(t *testing.T) {
	// An empty input still yields one (empty) chunk wrapper, never a panic.
	marked := AddChunkMarkers("")
	assert.Contains(t, marked, "<chunk1>")
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First sentence. Second one! Third?")
	require.Len(t, got, 3)
	assert.Equal(t, "First sentence.", got[0])
	assert.Equal(t, "Third?", got[2])
}

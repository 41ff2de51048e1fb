package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultMinWords and DefaultMaxWords bound chunk sizes for marker
	// generation. Chunks below the minimum keep accumulating paragraphs,
	// chunks above the maximum force a split on sentence boundaries.
	DefaultMinWords = 200
	DefaultMaxWords = 500
)

var sentenceEndRe = regexp.MustCompile(`(?s)\S.*?(?:[.!?]["')\]]?(?:\s+|$)|$)`)

// SplitIntoChunks splits text into chunks on paragraph boundaries. Paragraphs
// longer than maxWords are themselves split on sentence boundaries so no
// single chunk grows unbounded.
func SplitIntoChunks(text string, minWords, maxWords int) []string {
	if minWords < 1 {
		minWords = DefaultMinWords
	}
	if maxWords < minWords {
		maxWords = DefaultMaxWords
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current []string
	currentWords := 0

	for _, paragraph := range paragraphs {
		words := len(strings.Fields(paragraph))

		if words > maxWords {
			var sentenceChunk []string
			sentenceWords := 0
			for _, sentence := range splitSentences(paragraph) {
				sentenceWords += len(strings.Fields(sentence))
				sentenceChunk = append(sentenceChunk, sentence)
				if sentenceWords >= maxWords {
					chunks = append(chunks, strings.Join(sentenceChunk, " "))
					sentenceChunk = nil
					sentenceWords = 0
				}
			}
			if len(sentenceChunk) > 0 {
				chunks = append(chunks, strings.Join(sentenceChunk, " "))
			}
			continue
		}

		current = append(current, paragraph)
		currentWords += words
		if currentWords >= minWords && currentWords <= maxWords {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			currentWords = 0
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// AddChunkMarkers wraps each chunk in numbered tags, producing the
// "<chunk1>...</chunk1>" form the planner and task builders expect.
func AddChunkMarkers(text string) string {
	chunks := SplitIntoChunks(text, DefaultMinWords, DefaultMaxWords)
	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "<chunk%d>%s</chunk%d>\n\n", i+1, chunk, i+1)
	}
	return strings.TrimSpace(b.String())
}

func splitSentences(paragraph string) []string {
	matches := sentenceEndRe.FindAllString(paragraph, -1)
	sentences := make([]string, 0, len(matches))
	for _, m := range matches {
		trimmed := strings.TrimSpace(m)
		if trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

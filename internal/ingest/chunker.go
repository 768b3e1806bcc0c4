package ingest

import (
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`(?:[.!?])\s+`)

// Chunker splits transcript text into sentence-aligned chunks. Chunks
// are capped at charLimit characters and consecutive chunks share up
// to charOverlap characters of trailing sentences, so a statement cut
// near a boundary still appears whole in one chunk.
type Chunker struct {
	charLimit   int
	charOverlap int
}

func NewChunker(charLimit, charOverlap int) *Chunker {
	return &Chunker{charLimit: charLimit, charOverlap: charOverlap}
}

// Chunk returns the chunked text, preserving sentence order. Whitespace
// is collapsed first so formatting artifacts in transcripts do not
// inflate chunk sizes.
func (c *Chunker) Chunk(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)
	var chunks []string
	i := 0
	for i < len(sentences) {
		var size int
		j := i
		for j < len(sentences) {
			next := len(sentences[j])
			if size > 0 {
				next++ // joining space
			}
			if size+next > c.charLimit && size > 0 {
				break
			}
			size += next
			j++
		}
		chunks = append(chunks, strings.Join(sentences[i:j], " "))
		if j >= len(sentences) {
			break
		}
		i = j - c.overlapSentences(sentences[i:j])
		if i < 0 || i >= j {
			i = j
		}
	}
	return chunks
}

// overlapSentences counts how many trailing sentences of the previous
// chunk fit within the overlap budget. The chunk's first sentence is
// never part of the overlap, which keeps the cursor advancing.
func (c *Chunker) overlapSentences(chunk []string) int {
	size := 0
	count := 0
	for k := len(chunk) - 1; k >= 1; k-- {
		size += len(chunk[k]) + 1
		if size > c.charOverlap {
			break
		}
		count++
	}
	return count
}

// splitSentences breaks text on sentence-ending punctuation followed by
// whitespace, keeping the punctuation with its sentence.
func splitSentences(text string) []string {
	locs := sentenceBoundary.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	var sentences []string
	start := 0
	for _, loc := range locs {
		// loc[0] is the punctuation mark; keep it with the sentence.
		end := loc[0] + 1
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

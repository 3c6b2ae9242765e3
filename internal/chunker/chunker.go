// Package chunker splits a document body into deterministic, paragraph-aware
// chunks: greedy paragraph packing, falling back to sentence-boundary
// splitting and finally a hard character-boundary split for oversize
// units, with a fixed token-overlap carried between adjacent output
// chunks.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/contextharness/ctx/internal/model"
)

// Config controls chunk sizing. New replaces a non-positive MaxTokens and a
// negative OverlapTokens with defaults; an OverlapTokens of 0 disables
// overlap.
type Config struct {
	MaxTokens     int
	OverlapTokens int
}

const (
	defaultMaxTokens     = 400
	defaultOverlapTokens = 40
)

// Chunker splits document bodies into Chunks.
type Chunker struct {
	maxTokens     int
	overlapTokens int
}

// New constructs a Chunker, applying defaults for out-of-range Config fields.
func New(cfg Config) *Chunker {
	c := &Chunker{maxTokens: cfg.MaxTokens, overlapTokens: cfg.OverlapTokens}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	if c.overlapTokens < 0 {
		c.overlapTokens = defaultOverlapTokens
	}
	return c
}

var sentenceSplit = regexp.MustCompile(`[.!?]+\s+`)

// Chunk splits body into a dense, 0-indexed sequence of chunks. The result is
// deterministic: the same body and Config always produce the same chunk
// text, indices, and hashes.
func (c *Chunker) Chunk(body string) []*model.Chunk {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	units := c.packUnits(splitParagraphs(body))

	out := make([]*model.Chunk, 0, len(units))
	var prevTail string
	for i, text := range units {
		full := text
		if i > 0 && prevTail != "" {
			full = prevTail + "\n\n" + text
		}
		out = append(out, &model.Chunk{
			ChunkIndex:    i,
			Text:          full,
			TokenEstimate: estimateTokens(full),
			TextHash:      hashText(full),
		})
		prevTail = tailTokens(text, c.overlapTokens)
	}
	return out
}

// splitParagraphs splits body on blank-line boundaries.
func splitParagraphs(body string) []string {
	raw := regexp.MustCompile(`\n\s*\n`).Split(body, -1)
	paras := make([]string, 0, len(raw))
	for _, p := range raw {
		if t := strings.TrimSpace(p); t != "" {
			paras = append(paras, t)
		}
	}
	return paras
}

// packUnits greedily packs paragraphs into chunk-sized text units, splitting
// any paragraph that alone exceeds maxTokens.
func (c *Chunker) packUnits(paragraphs []string) []string {
	var units []string
	var current []string
	currentSize := 0

	flush := func() {
		if len(current) > 0 {
			units = append(units, strings.Join(current, "\n\n"))
			current = nil
			currentSize = 0
		}
	}

	for _, p := range paragraphs {
		size := estimateTokens(p)

		if size > c.maxTokens {
			flush()
			units = append(units, c.splitOversizeParagraph(p)...)
			continue
		}

		if currentSize > 0 && currentSize+size > c.maxTokens {
			flush()
		}
		current = append(current, p)
		currentSize += size
	}
	flush()
	return units
}

// splitOversizeParagraph splits a single paragraph larger than maxTokens on
// sentence boundaries, falling back to a hard character split for any
// resulting sentence still too large (e.g. one unbroken run-on line).
func (c *Chunker) splitOversizeParagraph(p string) []string {
	sentences := sentenceSplit.Split(p, -1)

	var units []string
	var current []string
	currentSize := 0

	flush := func() {
		if len(current) > 0 {
			units = append(units, strings.Join(current, " "))
			current = nil
			currentSize = 0
		}
	}

	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		size := estimateTokens(s)

		if size > c.maxTokens {
			flush()
			units = append(units, hardSplit(s, c.maxTokens)...)
			continue
		}

		if currentSize > 0 && currentSize+size > c.maxTokens {
			flush()
		}
		current = append(current, s)
		currentSize += size
	}
	flush()
	return units
}

// hardSplit breaks text into maxTokens-sized slices on raw character
// boundaries (4 chars/token, matching estimateTokens), the last-resort tier
// for a single sentence too large to fit a chunk on its own.
func hardSplit(text string, maxTokens int) []string {
	maxChars := maxTokens * 4
	if maxChars <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += maxChars {
		end := i + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// tailTokens returns the trailing ~n tokens of text, word-aligned, for use
// as overlap context in the next chunk.
func tailTokens(text string, n int) string {
	if n <= 0 {
		return ""
	}
	maxChars := n * 4
	if len(text) <= maxChars {
		return text
	}
	words := strings.Fields(text)
	var tail []string
	size := 0
	for i := len(words) - 1; i >= 0; i-- {
		size += estimateTokens(words[i]) + 1
		tail = append([]string{words[i]}, tail...)
		if size >= n {
			break
		}
	}
	return strings.Join(tail, " ")
}

// estimateTokens approximates token count as ceil(char_count / 4), .
func estimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

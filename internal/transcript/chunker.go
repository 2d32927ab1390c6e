package transcript

import (
	"strings"

	"veristream/internal/model"
)

// Chunker splits a transcript into overlapping time-bounded segments
// for incremental claim extraction. Chunking is a pure function of the
// caption spans: the same input always yields the same chunks.
type Chunker struct {
	targetSeconds    float64
	maxSeconds       float64
	contextSentences int
}

// NewChunker creates a chunker from configuration, applying defaults
// for zero or inverted bounds.
func NewChunker(cfg model.ChunkerConfig) *Chunker {
	target := cfg.TargetSeconds
	if target <= 0 {
		target = 45
	}
	max := cfg.MaxSeconds
	if max < target {
		max = target + 15
	}
	sentences := cfg.ContextSentences
	if sentences <= 0 {
		sentences = 2
	}
	return &Chunker{
		targetSeconds:    target,
		maxSeconds:       max,
		contextSentences: sentences,
	}
}

// Chunk segments the caption spans into ordered chunks. A chunk closes
// at the first caption boundary past the target span that also ends a
// sentence; the hard ceiling closes it regardless. Each chunk carries
// the final sentences of its predecessor as context so extraction can
// resolve references like "he" or "that policy".
func (c *Chunker) Chunk(spans []model.CaptionSpan) []model.TranscriptChunk {
	var chunks []model.TranscriptChunk

	var (
		texts   []string
		startS  float64
		endS    float64
		started bool
	)

	flush := func() {
		if !started || len(texts) == 0 {
			return
		}
		text := strings.Join(texts, " ")
		chunk := model.TranscriptChunk{
			Index:  len(chunks),
			StartS: startS,
			EndS:   endS,
			Text:   text,
		}
		if n := len(chunks); n > 0 {
			chunk.Context = trailingSentences(chunks[n-1].Text, c.contextSentences)
		}
		chunks = append(chunks, chunk)
		texts = nil
		started = false
	}

	for _, sp := range spans {
		text := strings.TrimSpace(sp.Text)
		if text == "" {
			continue
		}

		if !started {
			startS = sp.StartS
			endS = sp.EndS()
			texts = []string{text}
			started = true
			continue
		}

		texts = append(texts, text)
		if end := sp.EndS(); end > endS {
			endS = end
		}

		span := endS - startS
		switch {
		case span >= c.maxSeconds:
			flush()
		case span >= c.targetSeconds && endsSentence(text):
			// Prefer closing on a sentence boundary so a claim is
			// never cut mid-way when avoidable.
			flush()
		}
	}
	flush()

	return chunks
}

// endsSentence reports whether the text ends with a sentence terminator.
func endsSentence(text string) bool {
	trimmed := strings.TrimRight(text, " \"')]")
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// trailingSentences returns the last n sentences of text.
func trailingSentences(text string, n int) string {
	if n <= 0 {
		return ""
	}

	// Walk backwards collecting sentence boundaries.
	boundaries := []int{}
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 >= len(text) || text[i+1] == ' ' {
				boundaries = append(boundaries, i)
			}
		}
	}

	if len(boundaries) <= n {
		return strings.TrimSpace(text)
	}

	cut := boundaries[len(boundaries)-1-n]
	return strings.TrimSpace(text[cut+1:])
}

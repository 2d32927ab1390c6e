package model

// CaptionSpan is one captioned text span with time bounds, as returned
// by a transcript source.
type CaptionSpan struct {
	Text      string  `json:"text"`
	StartS    float64 `json:"start"`
	DurationS float64 `json:"duration"`
}

// EndS returns the end offset of the span.
func (s CaptionSpan) EndS() float64 {
	return s.StartS + s.DurationS
}

// TranscriptChunk is a time-bounded segment of the transcript suitable
// for incremental claim extraction. Immutable once produced.
type TranscriptChunk struct {
	Index   int     `json:"index"`             // Ordered sequence index (0-based)
	StartS  float64 `json:"start_s"`           // Start offset in seconds
	EndS    float64 `json:"end_s"`             // End offset in seconds
	Text    string  `json:"text"`              // Raw chunk text
	Context string  `json:"context,omitempty"` // Trailing sentences from the previous chunk
}
